package builder

import "github.com/cockroachdb/errors"

// Typed failures surfaced by the build pipeline. The pipeline is
// all-or-nothing: any stage failure aborts the remaining stages and no
// partial playlist is ever written.
var (
	// ErrMissingUserID indicates the profile lookup returned no usable
	// user identifier.
	ErrMissingUserID = errors.New("profile did not include a user identifier")

	// ErrNoArtists indicates zero artists resolved from the configured
	// sources.
	ErrNoArtists = errors.New("no artists were resolved from the configured sources")

	// ErrNoTracks indicates track collection produced an empty list.
	ErrNoTracks = errors.New("no tracks could be generated for the playlist")

	// ErrArtistsFile indicates the configured artists file could not be
	// read.
	ErrArtistsFile = errors.New("artists file could not be read")

	// ErrMissingDependencies indicates a required collaborator was not
	// supplied.
	ErrMissingDependencies = errors.New("required collaborator is not configured")

	// ErrUnderlying marks failures raised by a collaborator
	// (transport, auth, decoding). Check with errors.Is.
	ErrUnderlying = errors.New("catalog operation failed")
)

// underlying wraps a collaborator failure and marks it as such.
func underlying(err error, msg string) error {
	return errors.Mark(errors.Wrap(err, msg), ErrUnderlying)
}

// errorsMissing builds an ErrMissingDependencies failure naming the
// absent collaborator.
func errorsMissing(name string) error {
	return errors.Mark(errors.Newf("%s is required for this build", name), ErrMissingDependencies)
}
