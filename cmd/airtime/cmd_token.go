/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/friendsincode/airtime/internal/auth"
)

var (
	tokenUser  string
	tokenRoles []string
	tokenTTL   time.Duration
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue an operator token for show control",
	Long:  "Issue a signed token using AIRTIME_JWT_SIGNING_KEY. Show start and stop require the operator or admin role.",
	RunE: func(cmd *cobra.Command, args []string) error {
		secret := os.Getenv("AIRTIME_JWT_SIGNING_KEY")
		if secret == "" {
			return errors.New("AIRTIME_JWT_SIGNING_KEY must be set")
		}
		if tokenUser == "" {
			return errors.New("--user is required")
		}
		token, err := auth.Issue([]byte(secret), auth.Claims{UserID: tokenUser, Roles: tokenRoles}, tokenTTL)
		if err != nil {
			return fmt.Errorf("issue token: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

func init() {
	tokenCmd.Flags().StringVar(&tokenUser, "user", "", "User ID to embed in the token")
	tokenCmd.Flags().StringSliceVar(&tokenRoles, "role", []string{auth.RoleOperator}, "Role to grant (repeatable)")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 12*time.Hour, "Token lifetime")
	rootCmd.AddCommand(tokenCmd)
}
