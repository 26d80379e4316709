package sdb

import (
	"bufio"
	"os"
	"regexp"
	"strconv"
	"strings"
)

// MemoryRegion is one mapping of the inferior's address space, parsed
// out of /proc/<pid>/maps.
type MemoryRegion struct {
	Start  VAddr
	End    VAddr
	Perms  string
	Offset uint64
	Path   string
}

func (r MemoryRegion) Contains(v VAddr) bool {
	return uint64(v) >= uint64(r.Start) && uint64(v) < uint64(r.End)
}

var procMapsLine = regexp.MustCompile(
	`^([0-9a-f]+)-([0-9a-f]+)\s+([rwxps-]+)\s+([0-9a-f]+)\s+([0-9a-f]+:[0-9a-f]+)\s+(\d+)(?:\s+(.*))?$`)

// MemoryRegions snapshots the inferior's current mappings. The list is
// re-read on every call; the kernel updates the file as the inferior
// maps and unmaps.
func (p *Process) MemoryRegions() ([]MemoryRegion, error) {
	file, err := os.Open("/proc/" + strconv.Itoa(p.pid) + "/maps")
	if err != nil {
		return nil, newErr(KindNotFound, "process.memory_regions", err)
	}
	defer file.Close()

	var out []MemoryRegion
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		m := procMapsLine.FindStringSubmatch(scanner.Text())
		if len(m) < 7 {
			continue
		}
		start, _ := strconv.ParseUint(m[1], 16, 64)
		end, _ := strconv.ParseUint(m[2], 16, 64)
		offset, _ := strconv.ParseUint(m[4], 16, 64)
		path := ""
		if len(m) > 7 {
			path = strings.TrimSpace(m[7])
		}
		out = append(out, MemoryRegion{
			Start:  VAddr(start),
			End:    VAddr(end),
			Perms:  m[3],
			Offset: offset,
			Path:   path,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, newErr(KindNotFound, "process.memory_regions", err)
	}
	return out, nil
}
