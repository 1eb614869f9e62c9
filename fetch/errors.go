package fetch

import "errors"

var (
	ErrBadStatus           = errors.New("unexpected HTTP status")
	ErrNoContentCollection = errors.New("listing has no content_collection")
	ErrNoSiteID            = errors.New("no site id in portal URL")
)
