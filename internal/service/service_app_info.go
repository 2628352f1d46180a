package service

import (
	"context"

	"github.com/MKhiriev/go-license-keeper/internal/logger"
	"github.com/MKhiriev/go-license-keeper/models"
)

type appInfoService struct {
	buildInfo models.BuildInfo

	logger *logger.Logger
}

// NewAppInfoService returns an AppInfoService reporting info. Builds
// without linker-injected metadata are reported as "N/A".
func NewAppInfoService(info models.BuildInfo, logger *logger.Logger) AppInfoService {
	if info.Version() == models.NewBuildInfo("", "", "").Version() {
		logger.Warn().Str("func", "NewAppInfoService").Msg("build version is not specified")
	}

	return &appInfoService{
		buildInfo: info,
		logger:    logger,
	}
}

func (s *appInfoService) BuildInfo(ctx context.Context) models.BuildInfo {
	return s.buildInfo
}
