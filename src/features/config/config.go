package config

// Config holds the application configuration.
type Config struct {
	MusicPath   string      `yaml:"musicPath" validate:"required"`
	Logger      Logger      `yaml:"logger"`
	Server      Server      `yaml:"server"`
	Downloader  Downloader  `yaml:"downloader"`
	MusicBrainz MusicBrainz `yaml:"musicbrainz"`
	Telegram    Telegram    `yaml:"telegram"`
	Subsonic    Subsonic    `yaml:"subsonic"`
	History     History     `yaml:"history"`
}

// Server holds the configuration for the Fiber server.
type Server struct {
	PrintRoutes bool   `yaml:"show_routes"`
	Port        uint32 `yaml:"port"`
}

// Logger holds the configuration for the app logging.
type Logger struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Downloader holds the configuration for the acquisition pipeline.
type Downloader struct {
	AudioFormat  string  `yaml:"audio_format" validate:"omitempty,oneof=mp3 flac"`
	AsciifyPaths bool    `yaml:"asciify_paths"`
	FfmpegPath   string  `yaml:"ffmpeg_path"`
	Artwork      Artwork `yaml:"artwork"`
}

// Artwork holds configuration for artwork handling.
type Artwork struct {
	Embedded EmbeddedArtwork `yaml:"embedded"`
}

// EmbeddedArtwork holds configuration for artwork embedded into files.
type EmbeddedArtwork struct {
	Enabled bool `yaml:"enabled"`
	Size    int  `yaml:"size"`
	Quality int  `yaml:"quality"`
}

// MusicBrainz holds the configuration for the metadata service client.
type MusicBrainz struct {
	UserAgent string `yaml:"user_agent"`
}

// Telegram holds the configuration for progress notifications.
type Telegram struct {
	Enabled bool    `yaml:"enabled"`
	Token   string  `yaml:"token"`
	ChatIDs []int64 `yaml:"chat_ids"`
}

// Subsonic holds the configuration for the media-server scan trigger.
type Subsonic struct {
	Enabled  bool   `yaml:"enabled"`
	URL      string `yaml:"url"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	AutoScan bool   `yaml:"auto_scan"`
	Watch    bool   `yaml:"watch"`
}

// History holds the configuration for the download-outcome store.
type History struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}
