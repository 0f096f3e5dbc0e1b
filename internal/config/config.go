package config

import (
	"log"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Minio     MinioConfig
	GitHub    GitHubConfig
	JWT       JWTConfig
	Thumbnail ThumbnailConfig
	AssetsDir string
}

type ServerConfig struct {
	Port string
	Env  string
}

type DatabaseConfig struct {
	URL string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string
	// PublicBaseURL overrides the URL prefix returned for uploaded objects;
	// defaults to the endpoint itself.
	PublicBaseURL string
}

type GitHubConfig struct {
	Token  string
	Owner  string
	Branch string
}

type JWTConfig struct {
	Secret       string
	AccessExpiry int // minutes
}

type ThumbnailConfig struct {
	Width   int
	Height  int
	Quality int
}

func Load() *Config {
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	viper.AutomaticEnv()

	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("SERVER_ENV", "development")
	viper.SetDefault("REDIS_ADDR", "localhost:6379")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("MINIO_ENDPOINT", "localhost:9000")
	viper.SetDefault("MINIO_ACCESS_KEY", "minioadmin")
	viper.SetDefault("MINIO_SECRET_KEY", "minioadmin")
	viper.SetDefault("MINIO_BUCKET", "catalog-images")
	viper.SetDefault("GITHUB_BRANCH", "main")
	viper.SetDefault("JWT_ACCESS_EXPIRY", 60)
	viper.SetDefault("THUMB_WIDTH", 300)
	viper.SetDefault("THUMB_HEIGHT", 200)
	viper.SetDefault("THUMB_QUALITY", 80)
	viper.SetDefault("ASSETS_DIR", "static/img")

	if err := viper.ReadInConfig(); err != nil {
		log.Printf("Warning: Could not read config file: %v", err)
	}

	return &Config{
		Server: ServerConfig{
			Port: viper.GetString("SERVER_PORT"),
			Env:  viper.GetString("SERVER_ENV"),
		},
		Database: DatabaseConfig{
			URL: viper.GetString("DATABASE_URL"),
		},
		Redis: RedisConfig{
			Addr:     viper.GetString("REDIS_ADDR"),
			Password: viper.GetString("REDIS_PASSWORD"),
			DB:       viper.GetInt("REDIS_DB"),
		},
		Minio: MinioConfig{
			Endpoint:      viper.GetString("MINIO_ENDPOINT"),
			AccessKey:     viper.GetString("MINIO_ACCESS_KEY"),
			SecretKey:     viper.GetString("MINIO_SECRET_KEY"),
			UseSSL:        viper.GetBool("MINIO_USE_SSL"),
			Bucket:        viper.GetString("MINIO_BUCKET"),
			PublicBaseURL: viper.GetString("MINIO_PUBLIC_BASE_URL"),
		},
		GitHub: GitHubConfig{
			Token:  viper.GetString("GITHUB_TOKEN"),
			Owner:  viper.GetString("GITHUB_OWNER"),
			Branch: viper.GetString("GITHUB_BRANCH"),
		},
		JWT: JWTConfig{
			Secret:       viper.GetString("JWT_SECRET"),
			AccessExpiry: viper.GetInt("JWT_ACCESS_EXPIRY"),
		},
		Thumbnail: ThumbnailConfig{
			Width:   viper.GetInt("THUMB_WIDTH"),
			Height:  viper.GetInt("THUMB_HEIGHT"),
			Quality: viper.GetInt("THUMB_QUALITY"),
		},
		AssetsDir: viper.GetString("ASSETS_DIR"),
	}
}
