package safetensors

// DTypeSize returns the element size in bytes of a safetensors dtype.
// Unknown dtypes report false and are passed through without size checks.
func DTypeSize(dtype string) (int64, bool) {
	switch dtype {
	case "BOOL", "U8", "I8", "F8_E4M3", "F8_E5M2":
		return 1, true
	case "U16", "I16", "F16", "BF16":
		return 2, true
	case "U32", "I32", "F32":
		return 4, true
	case "U64", "I64", "F64":
		return 8, true
	default:
		return 0, false
	}
}
