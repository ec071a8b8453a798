package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"

	"github.com/google/uuid"

	"ai-chat-assistant-service/internal/stream"
)

// Interactive client for exercising the gateway from a terminal. Each
// line typed becomes a chat turn; streamed chunks print as they arrive.
func main() {
	base := flag.String("addr", "http://localhost:8080", "gateway base URL")
	flag.Parse()

	clientID := uuid.NewString()
	log.Printf("client id %s, talking to %s", clientID, *base)

	scanner := bufio.NewScanner(os.Stdin)
	fmt.Print("> ")
	for scanner.Scan() {
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			fmt.Print("> ")
			continue
		}
		if input == "/quit" {
			return
		}
		if err := sendTurn(*base, clientID, input); err != nil {
			log.Printf("turn failed: %v", err)
		}
		fmt.Print("> ")
	}
}

func sendTurn(base, clientID, message string) error {
	body, err := json.Marshal(map[string]string{
		"clientId": clientID,
		"input":    message,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequest(http.MethodPost, base+"/v1/chat/turns", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("status %d: %s", resp.StatusCode, msg)
	}

	dec := stream.NewDecoder(resp.Body)
	for {
		frame, err := dec.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		switch frame.Kind {
		case stream.FrameChunk:
			fmt.Print(frame.Chunk)
		case stream.FrameDone:
			fmt.Println()
			return nil
		case stream.FrameError:
			fmt.Println()
			return fmt.Errorf("server error: %s", frame.Message)
		}
	}
	fmt.Println()
	return nil
}
