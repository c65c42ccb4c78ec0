package speech

import (
	"errors"
	"strings"

	speechmodel "github.com/zhouzirui/health-assistant/backend/internal/model/speech"
)

var ErrMissingCredentials = errors.New("volcengine speech credentials are not configured")

type credentials struct {
	appKey    string
	accessKey string
}

// resolveCredentials AccessToken 缺失时回退到 APIKey
func resolveCredentials(cfg *speechmodel.Config) (credentials, error) {
	if cfg == nil {
		return credentials{}, ErrMissingCredentials
	}
	c := credentials{
		appKey:    strings.TrimSpace(cfg.AppID),
		accessKey: strings.TrimSpace(cfg.AccessToken),
	}
	if c.accessKey == "" {
		c.accessKey = strings.TrimSpace(cfg.APIKey)
	}
	if c.appKey == "" || c.accessKey == "" {
		return credentials{}, ErrMissingCredentials
	}
	return c, nil
}
