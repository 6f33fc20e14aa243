package asyncresult

import (
	"fmt"
	"runtime"
)

// caller formats "file.go:line" for the frame skip levels above this
// function, used to attach a source-location hint to a freshly built error
// per the data model's "optional source location for diagnostics".
func caller(skip int) string {
	_, file, line, ok := runtime.Caller(skip)
	if !ok {
		return ""
	}
	return fmt.Sprintf("%s:%d", shortFile(file), line)
}

func shortFile(file string) string {
	depth := 0
	for i := len(file) - 1; i >= 0; i-- {
		if file[i] == '/' {
			depth++
			if depth == 2 {
				return file[i+1:]
			}
		}
	}
	return file
}
