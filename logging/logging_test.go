package logging_test

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/consortia-dev/consortia/logging"
)

func TestSetLoggerAndLevel(t *testing.T) {
	orig := logging.L()
	defer logging.SetLogger(*orig)

	var buf bytes.Buffer
	logging.SetLogger(zerolog.New(&buf).Level(zerolog.InfoLevel))

	logging.L().Info().Str("k", "v").Msg("hello")
	require.Contains(t, buf.String(), "hello")

	buf.Reset()
	logging.SetLevel(zerolog.ErrorLevel)
	logging.L().Info().Msg("dropped")
	require.Empty(t, buf.String())
}
