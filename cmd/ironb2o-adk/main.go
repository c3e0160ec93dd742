package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"

	"github.com/LubyRuffy/ironb2o"
	"github.com/LubyRuffy/ironb2o/auth"
	"github.com/LubyRuffy/ironb2o/backend"
	"github.com/cloudwego/eino/adk"
	"github.com/cloudwego/eino/schema"
)

const (
	defaultAgentName        = "ironb2o"
	defaultAgentDescription = "chat agent backed by iron.cx"
)

func main() {
	var (
		model       = flag.String("model", ironb2o.DefaultModelID, "model id, see /v1/models")
		input       = flag.String("input", "你好，介绍一下你自己", "user input")
		identityURL = flag.String("identity-url", ironb2o.DefaultIdentityURL, "anonymous identity endpoint")
		chatURL     = flag.String("chat-url", ironb2o.DefaultChatURL, "upstream chat completions endpoint")
		authSource  = flag.String("auth-source", "anon", "auth source: anon|env|auto")
		streaming   = flag.Bool("stream", false, "print output as it arrives")
	)
	flag.Parse()

	client := backend.NewClient(backend.ClientConfig{
		IdentityURL: *identityURL,
		ChatURL:     *chatURL,
	})
	provider, err := auth.NewProvider(*authSource, client)
	if err != nil {
		log.Fatalf("invalid auth-source: %v", err)
	}

	m, err := backend.NewChatModel(backend.ChatModelConfig{
		Model:  *model,
		Client: client,
		TokenSource: func(ctx context.Context) (string, error) {
			token, _, err := provider.Auth(ctx)
			return token, err
		},
	})
	if err != nil {
		log.Fatalf("create model failed: %v", err)
	}

	ctx := context.Background()
	agent, err := adk.NewChatModelAgent(ctx, &adk.ChatModelAgentConfig{
		Name:        defaultAgentName,
		Description: defaultAgentDescription,
		Model:       m,
	})
	if err != nil {
		log.Fatalf("create agent failed: %v", err)
	}

	runner := adk.NewRunner(ctx, adk.RunnerConfig{
		Agent:           agent,
		EnableStreaming: *streaming,
	})

	iter := runner.Run(ctx, []adk.Message{schema.UserMessage(*input)})
	for {
		ev, ok := iter.Next()
		if !ok {
			break
		}
		if ev.Err != nil {
			log.Fatalf("run failed: %v", ev.Err)
		}
		if ev.Output == nil || ev.Output.MessageOutput == nil {
			continue
		}
		out := ev.Output.MessageOutput
		if out.IsStreaming && out.MessageStream != nil {
			if err := printStream(out.MessageStream); err != nil {
				log.Fatalf("read stream failed: %v", err)
			}
			continue
		}
		if out.Message != nil && out.Message.Content != "" {
			fmt.Print(out.Message.Content)
		}
	}
	fmt.Println()
}

func printStream(sr *schema.StreamReader[*schema.Message]) error {
	defer sr.Close()
	for {
		chunk, err := sr.Recv()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		if chunk != nil {
			fmt.Print(chunk.Content)
		}
	}
}
