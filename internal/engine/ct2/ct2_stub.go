//go:build !(ctranslate2 && cgo)

package ct2

import (
	"context"
	"errors"

	"github.com/valpere/metaltran/internal/engine"
)

var _ engine.Engine = (*Translator)(nil)

var ErrUnsupported = errors.New("ct2: built without CTranslate2 support (rebuild with -tags ctranslate2 and cgo enabled)")

type Translator struct{}

func New(modelPath, device string) (*Translator, error) {
	return nil, ErrUnsupported
}

func (t *Translator) Name() string {
	return "ct2"
}

func (t *Translator) TranslateBatch(ctx context.Context, source [][]string, targetPrefix [][]string, opts engine.Options) ([]engine.Result, error) {
	return nil, ErrUnsupported
}

func (t *Translator) Close() error {
	return nil
}
