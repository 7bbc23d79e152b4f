package main

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/chzyer/readline"

	"github.com/guyettinger/gle-vision-chat/internal/client"
	"github.com/guyettinger/gle-vision-chat/internal/session"
)

func main() {
	err := mainImpl()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func mainImpl() error {
	serverURL := os.Getenv("VISION_CHAT_URL")
	if serverURL == "" {
		serverURL = "http://localhost:8080"
	}

	sess := session.New(client.New(serverURL, 90*time.Second))

	rl, err := readline.New("> ")
	if err != nil {
		return err
	}
	defer func() {
		_ = rl.Close()
	}()

	fmt.Println("Attach up to 4 images with /attach <path>, then ask a question.")
	fmt.Println("Commands: /attach <path>, /clear, /quit")

	for {
		line, err := rl.Readline()
		if err != nil { // io.EOF
			break
		}
		line = strings.TrimSpace(line)
		switch {
		case line == "":
			continue
		case line == "/quit":
			return nil
		case line == "/clear":
			sess.ClearImages()
			fmt.Println("Staged images cleared.")
		case strings.HasPrefix(line, "/attach "):
			path := strings.TrimSpace(strings.TrimPrefix(line, "/attach "))
			if err := attach(sess, path); err != nil {
				fmt.Println(err)
				continue
			}
			fmt.Printf("Attached %s (%d staged).\n", path, len(sess.StagedImages()))
		default:
			ask(sess, line)
		}
	}
	return nil
}

// attach reads an image file and stages it as a data URI.
func attach(sess *session.Session, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("cannot read %s: %w", path, err)
	}
	mimeType := http.DetectContentType(data)
	if !strings.HasPrefix(mimeType, "image/") {
		return fmt.Errorf("%s does not look like an image (%s)", path, mimeType)
	}
	uri := fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(data))
	return sess.AttachImage(uri)
}

func ask(sess *session.Session, question string) {
	sess.SetQuestion(question)
	if err := sess.Submit(context.Background()); err != nil {
		if banner := sess.Err(); banner != "" {
			fmt.Println(banner)
		} else {
			fmt.Println(err)
		}
		return
	}
	printLastAnswer(sess)
}

func printLastAnswer(sess *session.Session) {
	transcript := sess.Transcript()
	for i := len(transcript) - 1; i >= 0; i-- {
		msg := transcript[i]
		if msg.Role != session.RoleAssistant || msg.Pending {
			continue
		}
		for _, r := range msg.Results {
			if r.OK {
				fmt.Printf("[image %d] %s\n", r.Index+1, r.Text)
			} else {
				fmt.Printf("[image %d] error: %s\n", r.Index+1, r.Error)
			}
		}
		return
	}
}
