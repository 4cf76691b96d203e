package credstore

import (
	"context"
	"fmt"

	"github.com/aussiebroadwan/storefront/pkg/cryptox"
)

// Sealed wraps a Store so both credentials are encrypted before they reach
// it. The scope is bound in as additional data, so a value lifted out of one
// scope and planted in another fails to decrypt.
func Sealed(inner Store, sealer *cryptox.Sealer, scope string) Store {
	return &sealedStore{inner: inner, sealer: sealer, aad: "credstore:" + scope}
}

type sealedStore struct {
	inner  Store
	sealer *cryptox.Sealer
	aad    string
}

func (s *sealedStore) Load(ctx context.Context) (Credentials, error) {
	sealed, err := s.inner.Load(ctx)
	if err != nil {
		return Credentials{}, err
	}

	access, err := s.sealer.OpenString(sealed.Access, s.aad+":access")
	if err != nil {
		return Credentials{}, fmt.Errorf("credstore: open access credential: %w", err)
	}
	renewal, err := s.sealer.OpenString(sealed.Renewal, s.aad+":renewal")
	if err != nil {
		return Credentials{}, fmt.Errorf("credstore: open renewal credential: %w", err)
	}

	return Credentials{Access: access, Renewal: renewal}, nil
}

func (s *sealedStore) Save(ctx context.Context, c Credentials) error {
	if !c.Complete() {
		return ErrIncomplete
	}

	access, err := s.sealer.SealString(c.Access, s.aad+":access")
	if err != nil {
		return fmt.Errorf("credstore: seal access credential: %w", err)
	}
	renewal, err := s.sealer.SealString(c.Renewal, s.aad+":renewal")
	if err != nil {
		return fmt.Errorf("credstore: seal renewal credential: %w", err)
	}

	return s.inner.Save(ctx, Credentials{Access: access, Renewal: renewal})
}

func (s *sealedStore) Clear(ctx context.Context) error { return s.inner.Clear(ctx) }
func (s *sealedStore) Close() error                    { return s.inner.Close() }
