package ticketpdf

import (
	"encoding/base64"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// 1x1 white PNG used when no logo file can be found.
const placeholderLogo = "iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAIAAACQd1PeAAAADElEQVR4nGP4//8/AAX+Av4N70a4AAAAAElFTkSuQmCC"

var defaultLogoPaths = []string{
	"Logo Concert.png",
	"logo concert.png",
	filepath.Join("public", "Logo Concert.png"),
	filepath.Join("public", "logo-concert.png"),
}

// LogoLoader returns a function that reads the logo once and serves the
// cached bytes afterwards. An explicit path is tried before the defaults.
func LogoLoader(path string, logger *slog.Logger) func() []byte {
	candidates := defaultLogoPaths
	if path != "" {
		candidates = append([]string{path}, defaultLogoPaths...)
	}

	return sync.OnceValue(func() []byte {
		for _, candidate := range candidates {
			data, err := os.ReadFile(candidate)
			if err == nil && len(data) > 0 {
				logger.Debug("ticket logo loaded", "path", candidate)
				return data
			}
		}
		logger.Warn("ticket logo not found, using placeholder")
		return PlaceholderLogo()
	})
}

func PlaceholderLogo() []byte {
	data, _ := base64.StdEncoding.DecodeString(placeholderLogo)
	return data
}
