package host

import (
	"bufio"
	"bytes"
	"context"
	"io"

	"go.uber.org/zap"

	"github.com/dshills/editorbridge/internal/logging"
	"github.com/dshills/editorbridge/internal/transport"
)

// maxFrameSize bounds a single inbound line.
const maxFrameSize = 4 << 20

// StdioServer reads newline-delimited calls from r and writes replies on
// out, the same channel the transport adapter uses for events, so that
// replies and events never interleave mid-line.
type StdioServer struct {
	dispatcher *Dispatcher
	in         io.Reader
	out        *transport.WriterChannel
	logger     *zap.Logger
}

// NewStdioServer creates a stdio server.
func NewStdioServer(d *Dispatcher, in io.Reader, out *transport.WriterChannel, logger *zap.Logger) *StdioServer {
	if logger == nil {
		logger = logging.L()
	}
	return &StdioServer{
		dispatcher: d,
		in:         in,
		out:        out,
		logger:     logger.Named("stdio"),
	}
}

// Serve handles calls until the input ends or ctx is done. It returns nil
// at end of input.
func (s *StdioServer) Serve(ctx context.Context) error {
	scanner := bufio.NewScanner(s.in)
	scanner.Buffer(make([]byte, 0, 64*1024), maxFrameSize)

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		reply := s.dispatcher.Handle(ctx, line)
		if err := s.out.Post(reply); err != nil {
			s.logger.Warn("reply failed", zap.Error(err))
			return err
		}
	}
	return scanner.Err()
}
