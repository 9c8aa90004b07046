package ssr

import (
	"github.com/shirou/gopsutil/v3/process"
)

// descendants lists every live descendant of pid, found by walking parent
// links in the process table. Descendants that started their own session
// are not reached by a process group kill, so they are killed one by one.
func descendants(pid int32) []*process.Process {
	procs, err := process.Processes()
	if err != nil {
		return nil
	}

	children := make(map[int32][]*process.Process)
	for _, p := range procs {
		ppid, err := p.Ppid()
		if err != nil {
			continue
		}
		children[ppid] = append(children[ppid], p)
	}

	var out []*process.Process
	queue := []int32{pid}
	seen := map[int32]bool{pid: true}
	for len(queue) > 0 {
		next := queue[0]
		queue = queue[1:]
		for _, c := range children[next] {
			if seen[c.Pid] {
				continue
			}
			seen[c.Pid] = true
			out = append(out, c)
			queue = append(queue, c.Pid)
		}
	}
	return out
}
