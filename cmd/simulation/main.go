package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"clinic-chat-be/internal/apperror"
	"clinic-chat-be/internal/bootstrap"
	"clinic-chat-be/internal/config"
	"clinic-chat-be/internal/constant"
	"clinic-chat-be/internal/dto"
	"clinic-chat-be/internal/pkg/logger"
	"clinic-chat-be/internal/repository/memory"
	"clinic-chat-be/internal/repository/seed"
	"clinic-chat-be/internal/service"
	"clinic-chat-be/internal/websocket"
	"clinic-chat-be/pkg/access"
	"clinic-chat-be/pkg/llm"

	"github.com/fatih/color"
	"github.com/google/uuid"
)

// scriptedLLM stands in for a model server: it waits, then answers from a script.
type scriptedLLM struct {
	delay time.Duration
}

func (s *scriptedLLM) Chat(ctx context.Context, history []llm.Message, options ...llm.Option) (string, error) {
	select {
	case <-time.After(s.delay):
	case <-ctx.Done():
		return "", ctx.Err()
	}
	last := strings.ToLower(history[len(history)-1].Content)
	switch {
	case strings.Contains(last, "fever"):
		return "I'm sorry you're unwell. How high is your temperature, and how long have you had it?", nil
	case strings.Contains(last, "39"):
		return "That is a high fever. I'm asking a nurse to look at your chat now.", nil
	default:
		return "Thanks, a member of our team will follow up.", nil
	}
}

var (
	patientColor = color.New(color.FgCyan)
	botColor     = color.New(color.FgMagenta)
	staffColor   = color.New(color.FgGreen)
	eventColor   = color.New(color.FgHiBlack)
	stepColor    = color.New(color.FgYellow, color.Bold)
)

func main() {
	delay := flag.Duration("llm-delay", 800*time.Millisecond, "simulated model latency")
	flag.Parse()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := &config.Config{
		App:      config.AppConfig{InstanceID: "simulation", FrontendURL: "http://localhost:5173"},
		Ai:       config.AIConfig{ReplyTimeout: 10 * time.Second, ContextWindow: 20, MaxConcurrent: 4},
		Realtime: config.RealtimeConfig{SendBuffer: 64},
		Access:   config.AccessConfig{CacheTTL: time.Minute},
	}

	store := memory.NewStore()
	clinic, err := seed.DemoClinic(ctx, store, true)
	if err != nil {
		log.Fatalf("seed: %v", err)
	}

	simLogger := logger.NewIsolatedLogger("logs/simulation.log")
	c := bootstrap.Build(cfg, bootstrap.Deps{
		UowFactory: store,
		LLM:        &scriptedLLM{delay: *delay},
		Logger:     simLogger,
	})
	defer c.Close()

	if err := c.ResponderService.Consume(ctx); err != nil {
		log.Fatalf("responder: %v", err)
	}

	patient := access.Caller{UserId: *clinic.Patient.UserId, OrganizationId: clinic.Organization.Id, Role: constant.RolePatient}
	nurse := staffCaller(clinic.Nurse.UserId, clinic)
	doctor := staffCaller(clinic.Doctor.UserId, clinic)

	stepColor.Printf("== %s: %s opens a chat\n", clinic.Organization.Name, clinic.Patient.FullName)
	session, err := c.MessageService.OpenSession(ctx, patient, nil)
	must(err)

	watcher := c.WebSocketHub.Subscribe(service.SessionTopic(session.Id))
	var printed sync.WaitGroup
	printed.Add(1)
	go func() {
		defer printed.Done()
		printFrames(watcher)
	}()

	say(ctx, c, patient, session.Id, "Hi, I've had a fever since last night.")
	waitForReplies(c, 1)

	say(ctx, c, patient, session.Id, "It was 39.4 this morning.")
	waitForReplies(c, 2)

	stepColor.Println("== Nurse escalates the chat")
	esc, err := c.EscalationService.Escalate(ctx, nurse, session.Id, &dto.EscalateRequest{Priority: constant.EscalationPriorityHigh})
	must(err)
	staffColor.Printf("escalation %s priority=%s status=%s\n", esc.Id, esc.Priority, esc.Status)

	stepColor.Println("== Nurse and doctor claim it at the same time")
	var wg sync.WaitGroup
	for name, caller := range map[string]access.Caller{"nurse": nurse, "doctor": doctor} {
		wg.Add(1)
		go func(name string, caller access.Caller) {
			defer wg.Done()
			res, err := c.EscalationService.AssignToSelf(ctx, caller, esc.Id)
			switch {
			case errors.Is(err, apperror.ErrAlreadyAssigned):
				staffColor.Printf("%s lost the claim: %v\n", name, err)
			case err != nil:
				color.Red("%s claim failed: %v", name, err)
			default:
				staffColor.Printf("%s won the claim (status=%s)\n", name, res.Status)
			}
		}(name, caller)
	}
	wg.Wait()

	claimed, err := c.EscalationService.Get(ctx, nurse, esc.Id)
	must(err)
	holder := nurse
	if *claimed.AssignedStaffId == clinic.Doctor.Id {
		holder = doctor
	}

	say(ctx, c, holder, session.Id, "This is the clinic. Please come in today, we have a slot at 3pm.")
	waitForReplies(c, 3)

	stepColor.Println("== Escalation resolved")
	resolved, err := c.EscalationService.Resolve(ctx, holder, esc.Id)
	must(err)
	staffColor.Printf("escalation %s status=%s\n", resolved.Id, resolved.Status)

	_, err = c.MessageService.Append(ctx, patient, session.Id, &dto.AppendMessageRequest{Body: "Thank you!"})
	if errors.Is(err, apperror.ErrSessionClosed) {
		color.Red("late message rejected: %v", err)
	}

	history, err := c.MessageService.GetHistory(ctx, patient, session.Id, 0)
	must(err)
	stepColor.Printf("== Transcript (%d messages)\n", len(history))
	for _, m := range history {
		printMessage(m)
	}

	stats := c.ResponderService.Stats()
	stepColor.Printf("== Responder: triggered=%d replied=%d skipped=%d failed=%d\n", stats.Triggered, stats.Replied, stats.Skipped, stats.Failed)

	cancel()
	c.ResponderService.Wait()
	c.WebSocketHub.Unsubscribe(watcher)
	printed.Wait()
}

func staffCaller(userId uuid.UUID, clinic *seed.Clinic) access.Caller {
	return access.Caller{UserId: userId, OrganizationId: clinic.Organization.Id, Role: constant.RoleStaff}
}

func say(ctx context.Context, c *bootstrap.Container, caller access.Caller, sessionId uuid.UUID, body string) {
	_, err := c.MessageService.Append(ctx, caller, sessionId, &dto.AppendMessageRequest{Body: body})
	must(err)
}

func waitForReplies(c *bootstrap.Container, n int64) {
	deadline := time.Now().Add(15 * time.Second)
	for c.ResponderService.Stats().Replied < n {
		if time.Now().After(deadline) {
			color.Red("timed out waiting for bot reply %d", n)
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
}

func printFrames(sub *websocket.Subscriber) {
	for frame := range sub.Messages() {
		var env struct {
			Type string          `json:"type"`
			Data json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal(frame, &env); err != nil {
			continue
		}
		if env.Type == service.EventMessageCreated {
			var m dto.ChatMessageResponse
			if err := json.Unmarshal(env.Data, &m); err == nil {
				printMessage(&m)
			}
			continue
		}
		eventColor.Printf("   [%s] %s\n", env.Type, env.Data)
	}
}

func printMessage(m *dto.ChatMessageResponse) {
	line := fmt.Sprintf("#%d %-7s %s\n", m.Seq, m.SenderKind, m.Body)
	switch m.SenderKind {
	case constant.SenderKindPatient:
		patientColor.Print(line)
	case constant.SenderKindBot:
		botColor.Print(line)
	default:
		staffColor.Print(line)
	}
}

func must(err error) {
	if err != nil {
		log.Fatal(err)
	}
}
