package ports

import "context"

type AssetSigner interface {
	Sign(ctx context.Context, collection, href string) (string, error)
}
