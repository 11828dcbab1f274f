package dump

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
)

// compressPipe feeds writes through an external filter process whose
// stdout goes to w. Close flushes stdin and waits for the process.
type compressPipe struct {
	stdin io.WriteCloser
	cmd   *exec.Cmd
}

// CompressPipe starts the given filter command (e.g. "gzip -9") and
// returns a writer whose output is compressed onto w.
func CompressPipe(command string, w io.Writer) (io.WriteCloser, error) {
	words := strings.Fields(command)
	if len(words) == 0 {
		return nil, fmt.Errorf("empty compress command")
	}
	cmd := exec.Command(words[0], words[1:]...)
	cmd.Stdout = w
	cmd.Stderr = os.Stderr
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("starting compress command %q: %w", command, err)
	}
	return &compressPipe{stdin: stdin, cmd: cmd}, nil
}

func (p *compressPipe) Write(b []byte) (int, error) {
	return p.stdin.Write(b)
}

func (p *compressPipe) Close() error {
	if err := p.stdin.Close(); err != nil {
		p.cmd.Wait()
		return err
	}
	return p.cmd.Wait()
}
