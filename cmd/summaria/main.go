package main

import (
	"fmt"
	"os"

	"github.com/TirzGirlsBot/TirzGirlsTLDR/common/environment"
	"github.com/TirzGirlsBot/TirzGirlsTLDR/common/version"
	"github.com/TirzGirlsBot/TirzGirlsTLDR/internal/summaria/app"
	"github.com/TirzGirlsBot/TirzGirlsTLDR/internal/summaria/guard"
	"github.com/TirzGirlsBot/TirzGirlsTLDR/internal/summaria/matrix"
	"github.com/TirzGirlsBot/TirzGirlsTLDR/internal/summaria/retention"
	"github.com/TirzGirlsBot/TirzGirlsTLDR/internal/summaria/summarizer"
)

func main() {
	fmt.Printf("Summaria\n")
	fmt.Printf("Version: %s\n", version.Version)
	fmt.Printf("Commit: %s\n", version.GitCommit)
	fmt.Printf("Build Time: %s\n", version.BuildTime)
	fmt.Println()

	// Load configuration from environment
	config, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	// Create application
	summaria, err := app.New(config)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize Summaria: %v\n", err)
		os.Exit(1)
	}
	defer summaria.Stop()

	// Run application
	if err := summaria.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running Summaria: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig loads configuration from environment variables
func loadConfig() (*app.Config, error) {
	homeserver, err := environment.RequiredString("MATRIX_HOMESERVER")
	if err != nil {
		return nil, err
	}
	userID, err := environment.RequiredString("MATRIX_USER_ID")
	if err != nil {
		return nil, err
	}
	accessToken, err := environment.RequiredString("MATRIX_ACCESS_TOKEN")
	if err != nil {
		return nil, err
	}
	rooms := environment.StringSliceOr("MATRIX_ROOMS", nil)
	if len(rooms) == 0 {
		return nil, fmt.Errorf("MATRIX_ROOMS is required")
	}

	return &app.Config{
		DatabasePath: environment.StringOr("DATABASE_PATH", "./summaria.db"),
		Matrix: matrix.Config{
			Homeserver:  homeserver,
			UserID:      userID,
			AccessToken: accessToken,
			Rooms:       rooms,
		},
		PersonaPath: environment.StringOr("SUMMARIA_PERSONA", ""),
		LLM: summarizer.Config{
			APIKey:  environment.StringOr("SUMMARIA_API_KEY", ""),
			BaseURL: environment.StringOr("SUMMARIA_API_BASE", ""),
			Model:   environment.StringOr("SUMMARIA_MODEL", ""),
		},
		Guard: guard.Config{
			SummarizeCooldown: environment.DurationOr("SUMMARIA_COOLDOWN", guard.DefaultSummarizeCooldown),
			ChatCooldown:      environment.DurationOr("SUMMARIA_CHAT_COOLDOWN", guard.DefaultChatCooldown),
			DailyLimit:        environment.IntOr("SUMMARIA_DAILY_LIMIT", guard.DefaultDailyLimit),
		},
		Retention: retention.Config{
			Horizon:           environment.DurationOr("SUMMARIA_RETENTION", retention.DefaultHorizon),
			FallbackThreshold: environment.IntOr("SUMMARIA_FALLBACK_THRESHOLD", retention.DefaultFallbackThreshold),
		},
		StartupGrace: environment.DurationOr("SUMMARIA_STARTUP_GRACE", 0),
		HTTPAddr:     environment.StringOr("HTTP_ADDR", ""),
		BotName:      environment.StringOr("SUMMARIA_BOT_NAME", ""),
	}, nil
}
