package main

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/snappy-loop/shadowtwin/internal/conversation"
)

var chatJSON bool

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Talk to your alternate self",
	Long: `Reads one message per line from stdin and prints each reply.
Type /quit or close stdin to end the conversation.`,
	Args: cobra.NoArgs,
	RunE: runChat,
}

func init() {
	addInputFlags(chatCmd)
	chatCmd.Flags().BoolVar(&chatJSON, "json", false, "print the transcript as JSON at the end")
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, args []string) error {
	in, err := loadInput()
	if err != nil {
		return err
	}
	r, err := getRunner(cmd.Context())
	if err != nil {
		return err
	}

	var opts []conversation.Option
	if tts := r.Speech(); tts != nil {
		opts = append(opts, conversation.WithSpeech(tts, r.Voices().VoiceFor(in.UnpursuedDreams, in.PastDecisions)))
	}
	session := conversation.NewSession(in, r.Content(), opts...)

	scanner := bufio.NewScanner(cmd.InOrStdin())
	for scanner.Scan() {
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		if text == "/quit" {
			break
		}
		reply := session.SubmitUserTurn(cmd.Context(), text)
		if !chatJSON {
			fmt.Fprintf(cmd.OutOrStdout(), "twin: %s\n", reply.Text)
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}

	session.Wait()
	if chatJSON {
		return printJSON(cmd, session.Transcript())
	}
	return nil
}
