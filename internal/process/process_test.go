package process

import (
	"testing"

	"github.com/mitchellh/go-ps"
)

type fakeProcess struct {
	pid  int
	name string
}

func (f fakeProcess) Pid() int           { return f.pid }
func (f fakeProcess) PPid() int          { return 1 }
func (f fakeProcess) Executable() string { return f.name }

func withProcesses(t *testing.T, procs ...ps.Process) {
	t.Helper()
	old := lister
	lister = func() ([]ps.Process, error) { return procs, nil }
	t.Cleanup(func() { lister = old })
}

func TestFindByName(t *testing.T) {
	withProcesses(t,
		fakeProcess{10, "bash"},
		fakeProcess{11, "v2ray"},
		fakeProcess{12, "V2Ray"},
	)

	found, err := FindByName("v2ray")
	if err != nil {
		t.Fatalf("FindByName returned error: %v", err)
	}
	if len(found) != 2 {
		t.Fatalf("expected 2 matches, got %d: %+v", len(found), found)
	}
	if found[0].PID != 11 || found[1].PID != 12 {
		t.Errorf("unexpected PIDs: %+v", found)
	}
}

func TestFindProcess(t *testing.T) {
	withProcesses(t, fakeProcess{42, "v2ray"})

	p, ok, err := FindProcess(42)
	if err != nil || !ok {
		t.Fatalf("expected process 42 to be found, ok=%v err=%v", ok, err)
	}
	if p.Name != "v2ray" {
		t.Errorf("expected name v2ray, got %q", p.Name)
	}

	if _, ok, _ := FindProcess(7); ok {
		t.Error("process 7 should not be found")
	}
}
