package service

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/ory/dockertest/v3"
	"github.com/studyhallhq/studyhall/auth"
	"github.com/studyhallhq/studyhall/id"
	"github.com/studyhallhq/studyhall/postgres"
	"github.com/studyhallhq/studyhall/postgres/migrator"
	"github.com/studyhallhq/studyhall/presence"
	"github.com/studyhallhq/studyhall/realtime"
	"github.com/studyhallhq/studyhall/types"
)

var (
	testDB       *pgxpool.Pool
	testPostgres *postgres.Postgres
)

func TestMain(m *testing.M) {
	os.Exit(testMain(m))
}

func testMain(m *testing.M) int {
	var skipIntegration bool
	flag.BoolVar(&skipIntegration, "skip-integration", false, "Skip integration tests docker setup")
	flag.Parse()

	if skipIntegration || testing.Short() {
		return m.Run()
	}

	pool, err := dockertest.NewPool("")
	if err != nil {
		fmt.Printf("could not create docker pool: %v\n", err)
		return 1
	}

	var cleanup func() error
	testDB, cleanup, err = setupTestDB(pool)
	if err != nil {
		fmt.Printf("could not setup test db: %v\n", err)
		return 1
	}
	testPostgres = postgres.New(testDB)

	err = migrator.New(testDB, postgres.MigrationsFS).Migrate(context.Background())
	if err != nil {
		fmt.Printf("could not migrate: %v\n", err)
		return 1
	}

	defer func() {
		if err := cleanup(); err != nil {
			fmt.Printf("could not cleanup postgres container: %v\n", err)
		}
	}()

	return m.Run()
}

func setupTestDB(pool *dockertest.Pool) (*pgxpool.Pool, func() error, error) {
	resource, err := pool.RunWithOptions(&dockertest.RunOptions{
		Repository: "postgres",
		Tag:        "16-alpine",
		Env: []string{
			"POSTGRES_USER=studyhall",
			"POSTGRES_PASSWORD=studyhall",
			"POSTGRES_DB=studyhall",
		},
	})
	if err != nil {
		return nil, nil, fmt.Errorf("could not create postgres resource: %w", err)
	}

	var db *pgxpool.Pool
	err = pool.Retry(func() (err error) {
		hostPort := resource.GetHostPort("5432/tcp")
		db, err = pgxpool.New(context.Background(), "postgresql://studyhall:studyhall@"+hostPort+"/studyhall?sslmode=disable")
		if err != nil {
			return fmt.Errorf("could not open db: %w", err)
		}

		// do not close db

		if err = db.Ping(context.Background()); err != nil {
			return fmt.Errorf("could not ping db: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	return db, func() error {
		return pool.Purge(resource)
	}, nil
}

func testService(t *testing.T) *Service {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	svc := New(&Config{
		Postgres:          testPostgres,
		Broker:            realtime.NewMemory(),
		Presence:          presence.NewTracker(),
		Logger:            slog.New(slog.DiscardHandler),
		BaseCtx:           context.Background(),
		BackgroundTimeout: 5 * time.Second,
	})
	t.Cleanup(func() {
		if err := svc.Close(); err != nil {
			t.Errorf("close service: %v", err)
		}
		for err := range svc.Errs() {
			t.Errorf("background error: %v", err)
		}
	})
	return svc
}

func asUser(id, username string) context.Context {
	return auth.ContextWithUser(context.Background(), types.User{ID: id, Username: username})
}

func genUserID(t *testing.T) string {
	t.Helper()
	return "user_" + t.Name() + fmt.Sprint(time.Now().UnixNano())
}

func TestService_SendMessage_UnreadAccounting(t *testing.T) {
	svc := testService(t)

	teacher := genUserID(t) + "t"
	alice := genUserID(t) + "a"
	bob := genUserID(t) + "b"

	created, err := svc.CreateGroupChat(asUser(teacher, "Teacher"), types.CreateGroupChat{
		CourseID: "course_" + teacher,
		UserIDs:  []string{alice, bob},
	})
	if err != nil {
		t.Fatalf("create group chat: %v", err)
	}

	_, err = svc.SendMessage(asUser(teacher, "Teacher"), types.SendMessage{
		ChatID:  created.ID,
		Content: "welcome to class",
	})
	if err != nil {
		t.Fatalf("send message: %v", err)
	}

	// Author's own counter stays at zero.
	count, err := svc.UnreadCount(asUser(teacher, "Teacher"), types.RetrieveUnreadCount{ChatID: created.ID})
	if err != nil {
		t.Fatalf("unread count teacher: %v", err)
	}
	if count != 0 {
		t.Errorf("author unread = %d, want 0", count)
	}

	for _, recipient := range []string{alice, bob} {
		count, err := svc.UnreadCount(asUser(recipient, "x"), types.RetrieveUnreadCount{ChatID: created.ID})
		if err != nil {
			t.Fatalf("unread count %s: %v", recipient, err)
		}
		if count != 1 {
			t.Errorf("recipient unread = %d, want 1", count)
		}
	}

	// Marking read zeroes the counter and is idempotent.
	for range 2 {
		if err := svc.MarkChatRead(asUser(alice, "Alice"), types.MarkChatRead{ChatID: created.ID}); err != nil {
			t.Fatalf("mark read: %v", err)
		}
	}
	count, err = svc.UnreadCount(asUser(alice, "Alice"), types.RetrieveUnreadCount{ChatID: created.ID})
	if err != nil {
		t.Fatalf("unread count after read: %v", err)
	}
	if count != 0 {
		t.Errorf("unread after mark read = %d, want 0", count)
	}

	// Bob never read; his counter keeps growing.
	_, err = svc.SendMessage(asUser(alice, "Alice"), types.SendMessage{ChatID: created.ID, Content: "hi all"})
	if err != nil {
		t.Fatalf("send second message: %v", err)
	}
	count, err = svc.UnreadCount(asUser(bob, "Bob"), types.RetrieveUnreadCount{ChatID: created.ID})
	if err != nil {
		t.Fatalf("unread count bob: %v", err)
	}
	if count != 2 {
		t.Errorf("bob unread = %d, want 2", count)
	}
}

func TestService_SendMessage_Validation(t *testing.T) {
	svc := testService(t)

	teacher := genUserID(t)
	created, err := svc.CreateGroupChat(asUser(teacher, "Teacher"), types.CreateGroupChat{
		CourseID: "course_" + teacher,
	})
	if err != nil {
		t.Fatalf("create group chat: %v", err)
	}

	tt := []struct {
		name    string
		content string
		wantErr bool
	}{
		{name: "empty", content: "", wantErr: true},
		{name: "whitespace only", content: "   \n\t ", wantErr: true},
		{name: "single rune", content: "k"},
		{name: "max length", content: stringOfRunes(2048)},
		{name: "over max length", content: stringOfRunes(2049), wantErr: true},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.SendMessage(asUser(teacher, "Teacher"), types.SendMessage{
				ChatID:  created.ID,
				Content: tc.content,
			})
			if gotErr := err != nil; gotErr != tc.wantErr {
				t.Errorf("SendMessage() error = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

func stringOfRunes(n int) string {
	runes := make([]rune, n)
	for i := range runes {
		runes[i] = 'é'
	}
	return string(runes)
}

func newTestMessageID() string {
	return id.Generate()
}

func TestService_SendMessage_RetrySameID(t *testing.T) {
	svc := testService(t)

	teacher := genUserID(t)
	alice := genUserID(t) + "a"
	created, err := svc.CreateGroupChat(asUser(teacher, "Teacher"), types.CreateGroupChat{
		CourseID: "course_" + teacher,
		UserIDs:  []string{alice},
	})
	if err != nil {
		t.Fatalf("create group chat: %v", err)
	}

	messageID := newTestMessageID()
	in := types.SendMessage{ChatID: created.ID, Content: "only once", MessageID: messageID}

	first, err := svc.SendMessage(asUser(teacher, "Teacher"), in)
	if err != nil {
		t.Fatalf("first send: %v", err)
	}
	if first.Duplicate {
		t.Fatal("first send reported duplicate")
	}
	second, err := svc.SendMessage(asUser(teacher, "Teacher"), in)
	if err != nil {
		t.Fatalf("retried send: %v", err)
	}

	if !second.Duplicate {
		t.Error("retry should report duplicate")
	}
	if second.ID != first.ID {
		t.Errorf("retry returned id %q, want %q", second.ID, first.ID)
	}

	// The retry must not double-count unread.
	count, err := svc.UnreadCount(asUser(alice, "Alice"), types.RetrieveUnreadCount{ChatID: created.ID})
	if err != nil {
		t.Fatalf("unread count: %v", err)
	}
	if count != 1 {
		t.Errorf("unread after retry = %d, want 1", count)
	}

	// History holds a single copy.
	page, err := svc.Messages(asUser(teacher, "Teacher"), types.ListMessages{ChatID: created.ID})
	if err != nil {
		t.Fatalf("messages: %v", err)
	}
	if len(page.Items) != 1 {
		t.Errorf("history has %d messages, want 1", len(page.Items))
	}
}

func TestService_Messages_OrderAndPagination(t *testing.T) {
	svc := testService(t)

	teacher := genUserID(t)
	created, err := svc.CreateGroupChat(asUser(teacher, "Teacher"), types.CreateGroupChat{
		CourseID: "course_" + teacher,
	})
	if err != nil {
		t.Fatalf("create group chat: %v", err)
	}

	ctx := asUser(teacher, "Teacher")
	for i := range 5 {
		_, err := svc.SendMessage(ctx, types.SendMessage{
			ChatID:  created.ID,
			Content: fmt.Sprintf("message %d", i),
		})
		if err != nil {
			t.Fatalf("send %d: %v", i, err)
		}
	}

	last := uint(2)
	page, err := svc.Messages(ctx, types.ListMessages{
		ChatID:   created.ID,
		PageArgs: types.PageArgs{Last: &last},
	})
	if err != nil {
		t.Fatalf("messages: %v", err)
	}

	if len(page.Items) != 2 {
		t.Fatalf("page has %d items, want 2", len(page.Items))
	}
	// Ascending within the page: the last page holds the two newest.
	if page.Items[0].Content != "message 3" || page.Items[1].Content != "message 4" {
		t.Errorf("bad page contents: %q, %q", page.Items[0].Content, page.Items[1].Content)
	}
	if !page.PageInfo.HasPreviousPage {
		t.Error("expected a previous page")
	}
	if page.PageInfo.StartCursor == nil {
		t.Fatal("expected a start cursor")
	}

	older, err := svc.Messages(ctx, types.ListMessages{
		ChatID:   created.ID,
		PageArgs: types.PageArgs{Last: &last, Before: page.PageInfo.StartCursor},
	})
	if err != nil {
		t.Fatalf("older messages: %v", err)
	}
	if len(older.Items) != 2 {
		t.Fatalf("older page has %d items, want 2", len(older.Items))
	}
	if older.Items[0].Content != "message 1" || older.Items[1].Content != "message 2" {
		t.Errorf("bad older page: %q, %q", older.Items[0].Content, older.Items[1].Content)
	}
}

func TestService_Messages_MarksRead(t *testing.T) {
	svc := testService(t)

	teacher := genUserID(t)
	alice := genUserID(t) + "a"
	created, err := svc.CreateGroupChat(asUser(teacher, "Teacher"), types.CreateGroupChat{
		CourseID: "course_" + teacher,
		UserIDs:  []string{alice},
	})
	if err != nil {
		t.Fatalf("create group chat: %v", err)
	}

	_, err = svc.SendMessage(asUser(teacher, "Teacher"), types.SendMessage{ChatID: created.ID, Content: "hi"})
	if err != nil {
		t.Fatalf("send: %v", err)
	}

	if _, err := svc.Messages(asUser(alice, "Alice"), types.ListMessages{ChatID: created.ID}); err != nil {
		t.Fatalf("messages: %v", err)
	}

	count, err := svc.UnreadCount(asUser(alice, "Alice"), types.RetrieveUnreadCount{ChatID: created.ID})
	if err != nil {
		t.Fatalf("unread count: %v", err)
	}
	if count != 0 {
		t.Errorf("reading history should mark the chat read, unread = %d", count)
	}
}

func TestService_PrivateChat_FindOrCreate(t *testing.T) {
	svc := testService(t)

	alice := genUserID(t) + "a"
	bob := genUserID(t) + "b"

	first, err := svc.PrivateChat(asUser(alice, "Alice"), types.CreatePrivateChat{OtherUserID: bob})
	if err != nil {
		t.Fatalf("first private chat: %v", err)
	}
	if first.IsGroup {
		t.Error("private chat flagged as group")
	}
	if len(first.UserIDs) != 2 {
		t.Errorf("private chat has %d participants, want 2", len(first.UserIDs))
	}

	// Either side asking again lands on the same chat.
	second, err := svc.PrivateChat(asUser(bob, "Bob"), types.CreatePrivateChat{OtherUserID: alice})
	if err != nil {
		t.Fatalf("second private chat: %v", err)
	}
	if second.ID != first.ID {
		t.Errorf("got a different chat %q, want %q", second.ID, first.ID)
	}

	// Self chats are rejected.
	_, err = svc.PrivateChat(asUser(alice, "Alice"), types.CreatePrivateChat{OtherUserID: alice})
	if err == nil {
		t.Error("self chat should be rejected")
	}
}

func TestService_GroupChat_Roster(t *testing.T) {
	svc := testService(t)

	teacher := genUserID(t)
	alice := genUserID(t) + "a"
	bob := genUserID(t) + "b"

	created, err := svc.CreateGroupChat(asUser(teacher, "Teacher"), types.CreateGroupChat{
		CourseID: "course_" + teacher,
	})
	if err != nil {
		t.Fatalf("create group chat: %v", err)
	}

	// Creating twice for the same course conflicts.
	_, err = svc.CreateGroupChat(asUser(teacher, "Teacher"), types.CreateGroupChat{
		CourseID: "course_" + teacher,
	})
	if err == nil {
		t.Fatal("second group chat for the course should conflict")
	}

	ctx := asUser(teacher, "Teacher")
	for _, u := range []string{alice, bob} {
		if err := svc.AddParticipant(ctx, types.AddParticipant{ChatID: created.ID, UserID: u}); err != nil {
			t.Fatalf("add participant %s: %v", u, err)
		}
	}
	// Re-enrolling is a no-op.
	if err := svc.AddParticipant(ctx, types.AddParticipant{ChatID: created.ID, UserID: alice}); err != nil {
		t.Fatalf("re-add participant: %v", err)
	}

	chat, err := svc.Chat(ctx, types.RetrieveChat{ChatID: created.ID})
	if err != nil {
		t.Fatalf("chat: %v", err)
	}
	if len(chat.UserIDs) != 3 {
		t.Errorf("roster size = %d, want 3", len(chat.UserIDs))
	}

	if err := svc.RemoveParticipant(ctx, types.RemoveParticipant{ChatID: created.ID, UserID: bob}); err != nil {
		t.Fatalf("remove participant: %v", err)
	}

	// Bob is out; the chat no longer exists for him.
	_, err = svc.Chat(asUser(bob, "Bob"), types.RetrieveChat{ChatID: created.ID})
	if err == nil {
		t.Error("removed participant should not see the chat")
	}
}

func TestService_DeleteChat_Cascades(t *testing.T) {
	svc := testService(t)

	teacher := genUserID(t)
	alice := genUserID(t) + "a"
	created, err := svc.CreateGroupChat(asUser(teacher, "Teacher"), types.CreateGroupChat{
		CourseID: "course_" + teacher,
		UserIDs:  []string{alice},
	})
	if err != nil {
		t.Fatalf("create group chat: %v", err)
	}

	ctx := asUser(teacher, "Teacher")
	if _, err := svc.SendMessage(ctx, types.SendMessage{ChatID: created.ID, Content: "bye"}); err != nil {
		t.Fatalf("send: %v", err)
	}

	if err := svc.DeleteChat(ctx, types.DeleteChat{ChatID: created.ID}); err != nil {
		t.Fatalf("delete chat: %v", err)
	}

	if _, err := svc.Chat(ctx, types.RetrieveChat{ChatID: created.ID}); err == nil {
		t.Error("deleted chat should be gone")
	}
	if _, err := svc.Messages(ctx, types.ListMessages{ChatID: created.ID}); err == nil {
		t.Error("deleted chat history should be gone")
	}
}

func TestService_Chats_Listing(t *testing.T) {
	svc := testService(t)

	teacher := genUserID(t)
	alice := genUserID(t) + "a"

	groupChat, err := svc.CreateGroupChat(asUser(teacher, "Teacher"), types.CreateGroupChat{
		CourseID: "course_" + teacher,
		UserIDs:  []string{alice},
	})
	if err != nil {
		t.Fatalf("create group chat: %v", err)
	}

	private, err := svc.PrivateChat(asUser(teacher, "Teacher"), types.CreatePrivateChat{OtherUserID: alice})
	if err != nil {
		t.Fatalf("private chat: %v", err)
	}

	// Activity in the group chat bumps it above the newer private one.
	_, err = svc.SendMessage(asUser(teacher, "Teacher"), types.SendMessage{ChatID: groupChat.ID, Content: "latest"})
	if err != nil {
		t.Fatalf("send: %v", err)
	}

	chats, err := svc.Chats(asUser(alice, "Alice"), types.ListChats{})
	if err != nil {
		t.Fatalf("chats: %v", err)
	}
	if len(chats) != 2 {
		t.Fatalf("alice has %d chats, want 2", len(chats))
	}
	if chats[0].ID != groupChat.ID {
		t.Errorf("most recently active chat should sort first, got %q", chats[0].ID)
	}
	if chats[0].LastMessage == nil || chats[0].LastMessage.Content != "latest" {
		t.Errorf("bad last message: %+v", chats[0].LastMessage)
	}
	if chats[0].UnreadCount == nil || *chats[0].UnreadCount != 1 {
		t.Errorf("bad unread count: %+v", chats[0].UnreadCount)
	}
	if chats[1].ID != private.ID {
		t.Errorf("expected private chat second, got %q", chats[1].ID)
	}
}

func TestService_Unauthenticated(t *testing.T) {
	svc := testService(t)

	ctx := context.Background()
	if _, err := svc.SendMessage(ctx, types.SendMessage{ChatID: newTestMessageID(), Content: "hi"}); err == nil {
		t.Error("send without auth should fail")
	}
	if _, err := svc.Chats(ctx, types.ListChats{}); err == nil {
		t.Error("listing without auth should fail")
	}
	if err := svc.MarkChatRead(ctx, types.MarkChatRead{ChatID: newTestMessageID()}); err == nil {
		t.Error("mark read without auth should fail")
	}
}
