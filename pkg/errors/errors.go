package errors

import (
	"fmt"
)

var (
	ErrMissingID          = fmt.Errorf("job payload missing id")
	ErrMissingProjectDir  = fmt.Errorf("job payload missing project_dir")
	ErrUnknownTarget      = fmt.Errorf("unknown target")
	ErrProjectDirNotFound = fmt.Errorf("project dir not found")
)
