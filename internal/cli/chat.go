package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "chat [message]",
		Short: "Talk to the assistant",
		Long:  "Send one message, or start an interactive session when no message is given. Type exit to quit.",
		Run:   runChat,
	}
	cmd.Flags().StringP("session", "s", "", "Session ID (default: a new one)")

	RootCmd.AddCommand(cmd)
}

func runChat(cmd *cobra.Command, args []string) {
	session, _ := cmd.Flags().GetString("session")
	if session == "" {
		session = "cli:" + uuid.NewString()
	}

	a, err := openApp(cmd.Context())
	if err != nil {
		exitErr("open app", err)
	}
	defer a.Close()

	if text := argText(args); text != "" {
		resp, err := a.Orchestrator.Process(cmd.Context(), userFlag, session, text)
		if err != nil {
			exitErr("chat", err)
		}
		output(resp, resp.Reply)
		return
	}

	scanner := bufio.NewScanner(os.Stdin)
	fmt.Fprint(os.Stderr, "> ")
	for scanner.Scan() {
		text := strings.TrimSpace(scanner.Text())
		if text == "exit" || text == "quit" {
			return
		}
		if text != "" {
			resp, err := a.Orchestrator.Process(cmd.Context(), userFlag, session, text)
			if err != nil {
				fmt.Fprintf(os.Stderr, "error: %v\n", err)
			} else {
				output(resp, resp.Reply)
			}
		}
		fmt.Fprint(os.Stderr, "> ")
	}
	if err := scanner.Err(); err != nil {
		exitErr("read stdin", err)
	}
}
