// Copyright 2024 The bit Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package mimedb

import (
	"errors"
	"fmt"
)

// Source ranks the dataset that asserted a MIME type's extensions.  Lower
// ranks are more authoritative and sort first in ExtEntry.Types.
type Source uint8

const (
	SourceIANA Source = iota
	SourceApache
	SourceNginx
	SourceNone
)

var ErrUnknownSource = errors.New("unknown source")

// ParseSource maps a dataset's "source" field to its rank.  An empty string
// means the field was absent.
func ParseSource(s string) (Source, error) {
	switch s {
	case "iana":
		return SourceIANA, nil
	case "apache":
		return SourceApache, nil
	case "nginx":
		return SourceNginx, nil
	case "":
		return SourceNone, nil
	default:
		return SourceNone, fmt.Errorf("%w: %q", ErrUnknownSource, s)
	}
}

func (s Source) String() string {
	switch s {
	case SourceIANA:
		return "iana"
	case SourceApache:
		return "apache"
	case SourceNginx:
		return "nginx"
	case SourceNone:
		return "none"
	default:
		return fmt.Sprintf("Source(%d)", uint8(s))
	}
}
