package platform

import (
	"github.com/prometheus/procfs"
)

func mappings() ([]Mapping, error) {
	self, err := procfs.Self()
	if err != nil {
		return nil, err
	}
	procMaps, err := self.ProcMaps()
	if err != nil {
		return nil, err
	}
	ret := make([]Mapping, 0, len(procMaps))
	for _, m := range procMaps {
		ret = append(ret, Mapping{
			Start: m.StartAddr,
			End:   m.EndAddr,
			Perms: perms(m.Perms),
			Path:  m.Pathname,
		})
	}
	return ret, nil
}

func perms(p *procfs.ProcMapPermissions) string {
	if p == nil {
		return "----"
	}
	b := []byte("---p")
	if p.Read {
		b[0] = 'r'
	}
	if p.Write {
		b[1] = 'w'
	}
	if p.Execute {
		b[2] = 'x'
	}
	if p.Shared {
		b[3] = 's'
	}
	return string(b)
}
