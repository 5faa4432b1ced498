//go:build !(unix || windows)

package platform

func reserve(base, length uintptr) error {
	return ErrUnsupported
}

func release(base, length uintptr) error {
	return ErrUnsupported
}

func minAddress() uintptr {
	return 0
}

func mappings() ([]Mapping, error) {
	return nil, ErrNoMappingTable
}
