package core

import (
	"log"
	"os"
)

const logFlags = log.LstdFlags | log.Lmsgprefix

var (
	// LogInf logs informational events.
	LogInf = log.New(os.Stderr, "inf: ", logFlags)
	// LogWrn logs warning events.
	LogWrn = log.New(os.Stderr, "wrn: ", logFlags)
	// LogErr logs error events.
	LogErr = log.New(os.Stderr, "err: ", logFlags)
)

// SetLogFile redirects all loggers to the file at path, appending to the
// existing content. File output carries UTC timestamps with microsecond
// precision and the caller location.
func SetLogFile(path string) error {
	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		return err
	}

	for _, logger := range []*log.Logger{LogInf, LogWrn, LogErr} {
		logger.SetOutput(file)
		logger.SetFlags(log.LUTC | log.Ldate | log.Ltime | log.Lmicroseconds |
			log.Lshortfile | log.Lmsgprefix)
	}

	return nil
}
