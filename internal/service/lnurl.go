package service

import (
	"context"
	"fmt"

	chaterrors "github.com/lnbits/chat/pkg/errors"
)

// LnurlInfo points clients at the pay endpoint that funds a chat balance.
// The raw URL is returned in both fields; bech32 encoding is left to the
// wallet-facing layer.
type LnurlInfo struct {
	URL   string `json:"url"`
	Lnurl string `json:"lnurl"`
}

func (s *ChatService) Lnurl(ctx context.Context, categoriesID, chatID string) (LnurlInfo, error) {
	category, err := s.categories.GetByID(ctx, categoriesID)
	if err != nil {
		return LnurlInfo{}, fmt.Errorf("%w: invalid categories id", chaterrors.ErrRejected)
	}
	if !category.Paid || !category.Lnurlp {
		return LnurlInfo{}, fmt.Errorf("%w: category does not accept balance funding", chaterrors.ErrRejected)
	}
	if _, err := s.chats.GetForCategory(ctx, categoriesID, chatID); err != nil {
		return LnurlInfo{}, err
	}
	u := fmt.Sprintf("%s/chat/api/v1/lnurlp/%s/%s", s.baseURL, categoriesID, chatID)
	return LnurlInfo{URL: u, Lnurl: u}, nil
}
