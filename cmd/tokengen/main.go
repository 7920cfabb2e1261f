// tokengen mints development bearer tokens for exercising the realtime
// channel and the HTTP API without going through the login endpoint.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"servly-chat-server/internal/auth"
	"servly-chat-server/internal/domain"
)

var (
	userID string
	role   string
	ttl    time.Duration
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "tokengen",
		Short: "Mint a development bearer token for a participant",
		RunE:  run,
	}

	cobra.OnInitialize(func() {
		viper.SetDefault("jwt_secret", "dev-secret-change-me")
		viper.AutomaticEnv()
	})

	rootCmd.Flags().StringVarP(&userID, "user-id", "u", "", "participant id (uuid, required)")
	rootCmd.Flags().StringVarP(&role, "role", "r", string(domain.RoleCustomer), "participant role (customer|provider|admin)")
	rootCmd.Flags().DurationVarP(&ttl, "ttl", "t", 24*time.Hour, "token lifetime")
	rootCmd.MarkFlagRequired("user-id")

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	id, err := uuid.Parse(userID)
	if err != nil {
		return fmt.Errorf("invalid user id: %w", err)
	}
	if !domain.Role(role).Valid() {
		return fmt.Errorf("unknown role %q", role)
	}

	token, err := auth.GenerateToken(viper.GetString("jwt_secret"), ttl, id, domain.Role(role))
	if err != nil {
		return err
	}

	fmt.Println(token)
	return nil
}
