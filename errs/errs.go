// Package errs defines the sentinel errors returned by the blackbox log
// decoder. Callers should compare against these with errors.Is rather than
// matching on error strings.
package errs

import "errors"

var (
	// Header-fatal errors (spec §7): the header failed to describe a usable
	// schema and the parse cannot continue.
	ErrNoMainFields       = errors.New("header: no main frame fields declared")
	ErrMissingIFrameDef   = errors.New("header: I frame definition missing predictor or encoding vector")
	ErrMissingPFrameDef   = errors.New("header: P frame definition missing predictor or encoding vector")
	ErrFrameDefVectorSize = errors.New("header: predictor/encoding/name vectors have mismatched lengths")
	ErrHeaderLineTooLong  = errors.New("header: line exceeds maximum length")
	ErrHeaderLineNoSpace  = errors.New("header: line following 'H' tag is missing the separating space")

	// Schema-fatal errors (spec §7): discovered while decoding a frame body.
	ErrUnknownEncoding       = errors.New("decode: unknown field encoding")
	ErrUnknownPredictor      = errors.New("decode: unknown field predictor")
	ErrMotorZeroUndeclared   = errors.New("decode: predictor MOTOR_0 requires a declared motor[0] field")
	ErrHomeCoordUndeclared   = errors.New("decode: predictor HOME_COORD requires GPS home field definitions")
	ErrHomeCoord1Undeclared  = errors.New("decode: predictor HOME_COORD_1 requires GPS home field definitions")
	ErrFieldIndexOutOfRange  = errors.New("decode: field index out of range for frame definition")

	// Stream-level errors surfaced by the stream.Reader primitive.
	ErrUnexpectedEOF = errors.New("stream: unexpected end of input")
	ErrNegativeRange = errors.New("stream: end offset precedes start offset")
)
