package pipeline

import "fmt"

// DecodeError means a file could not be turned into a usable frame:
// unreadable, unrecognized format, or a video with no extractable
// frame. It skips that file only.
type DecodeError struct {
	Path string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("photo `%s` could not be processed: %v", e.Path, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// MissingTimeError means the capture timestamp was absent (and the
// caller disallowed missing times) or present but unparseable. It is
// raised before the detector runs, so no work is wasted on the file.
type MissingTimeError struct {
	Path      string
	Malformed bool
}

func (e *MissingTimeError) Error() string {
	if e.Malformed {
		return fmt.Sprintf("photo `%s` has a malformed capture time", e.Path)
	}
	return fmt.Sprintf("photo `%s` has no capture time", e.Path)
}

// DetectorError wraps an unexpected adapter failure, such as an
// unknown label code or malformed model output. Fatal for the file,
// never for the worker.
type DetectorError struct {
	Path string
	Err  error
}

func (e *DetectorError) Error() string {
	return fmt.Sprintf("detector failed on `%s`: %v", e.Path, e.Err)
}

func (e *DetectorError) Unwrap() error { return e.Err }

// StorageWriteError means a crop could not be written to the object
// store. It aborts that detection's persistence only.
type StorageWriteError struct {
	Key string
	Err error
}

func (e *StorageWriteError) Error() string {
	return fmt.Sprintf("store crop `%s`: %v", e.Key, e.Err)
}

func (e *StorageWriteError) Unwrap() error { return e.Err }
