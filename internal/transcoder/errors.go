package transcoder

import "errors"

var (
	// ErrSpawn reports that the encoder process could not be started.
	ErrSpawn = errors.New("failed to start encoder")

	// ErrEncode reports that the encoder exited with a failure status.
	ErrEncode = errors.New("encoder failed")

	// ErrNoOutput reports a retrieval for a job without a finished output.
	ErrNoOutput = errors.New("job has no finished output")
)
