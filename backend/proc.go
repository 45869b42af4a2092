package backend

import (
	"io"
	"os/exec"
)

type execProcess struct {
	cmd  *exec.Cmd
	done chan struct{}
	err  error
}

// launchServer starts the real whisper-server binary with stdio discarded
// and a goroutine collecting its exit status.
func launchServer(bin string, args []string) (serverProcess, error) {
	cmd := exec.Command(bin, args...)
	cmd.Stdout = io.Discard
	cmd.Stderr = io.Discard
	if err := cmd.Start(); err != nil {
		return nil, err
	}
	p := &execProcess{cmd: cmd, done: make(chan struct{})}
	go func() {
		p.err = cmd.Wait()
		close(p.done)
	}()
	return p, nil
}

func (p *execProcess) Done() <-chan struct{} { return p.done }

func (p *execProcess) Err() error {
	select {
	case <-p.done:
		return p.err
	default:
		return nil
	}
}

func (p *execProcess) Terminate() error {
	return terminateProcess(p.cmd)
}

func (p *execProcess) Kill() error {
	return p.cmd.Process.Kill()
}
