package surface

import (
	"errors"
	"fmt"
)

// Sentinel errors for surface operations.
var (
	ErrTemplateContract   = errors.New("surface: template contract violation")
	ErrMalformedAttribute = errors.New("surface: malformed attribute value")
	ErrUnknownSurface     = errors.New("surface: unknown surface tag")
	ErrNotMaterialized    = errors.New("surface: surface has no private subtree yet")
	ErrNotFound           = errors.New("surface: resource not found")
	ErrDecryptFailed      = errors.New("surface: token decryption failed")
	ErrSignatureInvalid   = errors.New("surface: signature verification failed")
	ErrInvalidFormat      = errors.New("surface: invalid token format")
)

// ContractError reports a visual template that does not contain what its
// surface expects, such as a missing display element.
type ContractError struct {
	// Surface is the tag of the surface that detected the violation.
	Surface string
	// Template is the name of the template the subtree was built from.
	Template string
	// Op is the step that needed the element (e.g. "project", "wire").
	Op string
	// ElementID is the missing element's id. Empty when the template
	// itself is missing.
	ElementID string
}

func (e *ContractError) Error() string {
	if e.ElementID == "" {
		return fmt.Sprintf("%s %s: no visual template: %v", e.Surface, e.Op, ErrTemplateContract)
	}
	return fmt.Sprintf("%s %s: template %q has no element #%s: %v",
		e.Surface, e.Op, e.Template, e.ElementID, ErrTemplateContract)
}

func (e *ContractError) Unwrap() error {
	return ErrTemplateContract
}

// IsTemplateContract checks if err is a template contract violation.
func IsTemplateContract(err error) bool {
	return errors.Is(err, ErrTemplateContract)
}

// IsMalformedAttribute checks if err was caused by an unparseable
// attribute value.
func IsMalformedAttribute(err error) bool {
	return errors.Is(err, ErrMalformedAttribute)
}

// IsNotFound checks if err is a not-found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrUnknownSurface)
}

// IsDecryptionError checks if err is a decryption or signature error.
func IsDecryptionError(err error) bool {
	return errors.Is(err, ErrDecryptFailed) || errors.Is(err, ErrSignatureInvalid)
}
