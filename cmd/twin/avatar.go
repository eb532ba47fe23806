package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/snappy-loop/shadowtwin/internal/models"
)

var avatarImage string

var avatarCmd = &cobra.Command{
	Use:   "avatar",
	Short: "Render a talking avatar video of your alternate self",
	Long: `Uploads the portrait, creates a replica and waits for the rendered video.
Requires the avatar vendor key and object storage credentials.`,
	Args: cobra.NoArgs,
	RunE: runAvatar,
}

func init() {
	addInputFlags(avatarCmd)
	avatarCmd.Flags().StringVar(&avatarImage, "image", "", "portrait image (jpeg, png or webp)")
	rootCmd.AddCommand(avatarCmd)
}

func runAvatar(cmd *cobra.Command, args []string) error {
	if avatarImage == "" {
		return errors.New("--image is required")
	}
	image, err := os.ReadFile(avatarImage)
	if err != nil {
		return fmt.Errorf("read image: %w", err)
	}
	in, err := loadInput()
	if err != nil {
		return err
	}
	r, err := getRunner(cmd.Context())
	if err != nil {
		return err
	}

	url, err := r.GenerateAvatarVideo(cmd.Context(), in, image)
	if err != nil {
		return fmt.Errorf("avatar video failed: %w", err)
	}
	return printJSON(cmd, models.AvatarVideoResponse{VideoURL: url})
}
