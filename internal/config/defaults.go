package config

const (
	defaultDataDir           = "~/.local/share/photomaton"
	defaultStorageDir        = "~/.local/share/photomaton/photos"
	defaultLogDir            = "~/.local/share/photomaton/logs"
	defaultAPIBind           = "127.0.0.1:7788"
	defaultMaxUploadMB       = 25
	defaultThumbnailSize     = 512
	defaultJPEGQuality       = 90
	defaultWatermarkPadding  = 20
	defaultWatermarkPosition = "bottom-right"
	defaultProvider          = "localfilter"
	defaultProviderTimeout   = 120
	defaultJobHistoryLimit   = 500
	defaultStuckResetSeconds = 30
	defaultRestyleTimeout    = 60
	defaultExportPrefix      = "photomaton-export"
	defaultLogFormat         = "console"
	defaultLogLevel          = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:    defaultDataDir,
			StorageDir: defaultStorageDir,
			LogDir:     defaultLogDir,
			APIBind:    defaultAPIBind,
		},
		Storage: Storage{
			MaxUploadMB:    defaultMaxUploadMB,
			AllowedFormats: []string{"jpeg", "png", "webp"},
			ThumbnailSize:  defaultThumbnailSize,
			JPEGQuality:    defaultJPEGQuality,
		},
		Watermark: Watermark{
			Enabled:  false,
			PaddingX: defaultWatermarkPadding,
			PaddingY: defaultWatermarkPadding,
			Position: defaultWatermarkPosition,
		},
		Transform: Transform{
			Provider:          defaultProvider,
			ProviderTimeout:   defaultProviderTimeout,
			JobHistoryLimit:   defaultJobHistoryLimit,
			StuckResetSeconds: defaultStuckResetSeconds,
		},
		Providers: Providers{
			Restyle: Restyle{
				TimeoutSeconds: defaultRestyleTimeout,
			},
		},
		Export: Export{
			FilenamePrefix: defaultExportPrefix,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
