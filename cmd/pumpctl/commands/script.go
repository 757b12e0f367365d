package commands

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"connectrpc.com/connect"

	"github.com/pumptool/tcppump/internal/control"
)

// errNoScriptSource indicates neither a file argument nor stdin content
// was given to a compile/send command.
var errNoScriptSource = errors.New("no script given: pass a file path or pipe a script via stdin")

// readScriptSource reads script text from path, or from stdin when path
// is "-" or omitted entirely.
func readScriptSource(args []string) (string, error) {
	if len(args) == 0 || args[0] == "-" {
		b, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		if len(b) == 0 {
			return "", errNoScriptSource
		}
		return string(b), nil
	}

	b, err := os.ReadFile(args[0])
	if err != nil {
		return "", fmt.Errorf("read %s: %w", args[0], err)
	}
	return string(b), nil
}

// requestTimeout bounds a single Compile RPC call.
const requestTimeout = 30 * time.Second

// compileFrames submits text to the daemon and returns the frames it
// compiled, optionally asking the daemon to also forward them to its
// configured sink.
func compileFrames(text string, send bool) ([]control.CompiledFrame, error) {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	resp, err := client.CallUnary(ctx, connect.NewRequest(&control.CompileRequest{
		ScriptText: text,
		Send:       send,
	}))
	if err != nil {
		return nil, fmt.Errorf("compile: %w", err)
	}
	return resp.Msg.Frames, nil
}

// printFrames writes a one-line-per-frame hex dump with its offset.
func printFrames(frames []control.CompiledFrame) {
	for i, f := range frames {
		fmt.Printf("frame %d  +%dus  %s\n", i, f.OffsetUs, hex.EncodeToString(f.Bytes))
	}
	fmt.Printf("%d frame(s)\n", len(frames))
}
