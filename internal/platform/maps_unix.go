//go:build unix && !linux

package platform

func mappings() ([]Mapping, error) {
	return nil, ErrNoMappingTable
}
