package service_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/wricardo/tictactoe-relay/game/board"
	"github.com/wricardo/tictactoe-relay/game/room"
	"github.com/wricardo/tictactoe-relay/game/service"
)

type sentEvent struct {
	To    string
	Event string
	Data  any
}

// recorder implements service.Notifier and keeps every event in order
type recorder struct {
	mu     sync.Mutex
	events []sentEvent
}

func (r *recorder) Send(participantID, event string, data any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, sentEvent{To: participantID, Event: event, Data: data})
}

func (r *recorder) For(participantID string) []sentEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []sentEvent
	for _, e := range r.events {
		if e.To == participantID {
			out = append(out, e)
		}
	}
	return out
}

func (r *recorder) Named(event string) []sentEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []sentEvent
	for _, e := range r.events {
		if e.Event == event {
			out = append(out, e)
		}
	}
	return out
}

func (r *recorder) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}

func newService(t testing.TB, opts ...service.Option) (service.GameService, *recorder) {
	t.Helper()
	rec := &recorder{}
	opts = append([]service.Option{service.WithEndGameDelay(0)}, opts...)
	return service.NewGameService(room.NewRegistry(), rec, opts...), rec
}

// startedGame returns a service with p1 as X and p2 as O in room "A".
func startedGame(t *testing.T, opts ...service.Option) (service.GameService, *recorder) {
	t.Helper()
	ctx := context.Background()
	svc, rec := newService(t, opts...)
	require.NoError(t, svc.CreateGame(ctx, "p1", "A"))
	require.NoError(t, svc.JoinGame(ctx, "p2", "A"))
	rec.Clear()
	return svc, rec
}

func play(t *testing.T, svc service.GameService, moves ...service.Move) {
	t.Helper()
	for _, m := range moves {
		player := "p1"
		if m.Symbol == "O" {
			player = "p2"
		}
		require.NoError(t, svc.MakeMove(context.Background(), player, m), "move %+v", m)
	}
}

func mv(index int, symbol string) service.Move {
	return service.Move{RoomID: "A", Index: index, Symbol: symbol}
}

func TestGameService_CreateAndJoin(t *testing.T) {
	ctx := context.Background()
	svc, rec := newService(t)

	require.NoError(t, svc.CreateGame(ctx, "p1", "A"))
	assert.Equal(t, []sentEvent{{To: "p1", Event: service.EventAssignedRole, Data: "X"}}, rec.For("p1"))

	require.NoError(t, svc.JoinGame(ctx, "p2", "A"))
	assert.Equal(t, []sentEvent{
		{To: "p2", Event: service.EventAssignedRole, Data: "O"},
		{To: "p2", Event: service.EventStartGame},
	}, rec.For("p2"))
	assert.Len(t, rec.Named(service.EventStartGame), 2, "both participants receive startGame")

	info, err := svc.GetRoom(ctx, "A")
	require.NoError(t, err)
	assert.Equal(t, "p1", info.PlayerX)
	assert.Equal(t, "p2", info.PlayerO)
	assert.Equal(t, "X", info.Turn)
	assert.Equal(t, service.StatusPlaying, info.Status)
	assert.Len(t, info.Board, board.Size)
}

func TestGameService_CreateErrors(t *testing.T) {
	ctx := context.Background()
	svc, rec := newService(t)
	require.NoError(t, svc.CreateGame(ctx, "p1", "A"))

	tests := []struct {
		name        string
		participant string
		roomID      string
		wantErr     error
	}{
		{"duplicate room", "p2", "A", room.ErrRoomExists},
		{"blank room", "p2", "", room.ErrInvalidRoomID},
		{"creator already seated", "p1", "B", room.ErrAlreadyInRoom},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec.Clear()
			err := svc.CreateGame(ctx, tt.participant, tt.roomID)
			assert.ErrorIs(t, err, tt.wantErr)

			events := rec.For(tt.participant)
			require.Len(t, events, 1)
			assert.Equal(t, service.EventError, events[0].Event)
			assert.Equal(t, err.Error(), events[0].Data)
		})
	}

	info, err := svc.GetRoom(ctx, "A")
	require.NoError(t, err)
	assert.Equal(t, "p1", info.PlayerX, "duplicate create must not overwrite the room")
}

func TestGameService_JoinErrors(t *testing.T) {
	ctx := context.Background()
	svc, rec := startedGame(t)

	err := svc.JoinGame(ctx, "p3", "missing")
	assert.ErrorIs(t, err, room.ErrRoomNotFound)

	err = svc.JoinGame(ctx, "p3", "A")
	assert.ErrorIs(t, err, room.ErrRoomFull)

	events := rec.For("p3")
	require.Len(t, events, 2)
	for _, e := range events {
		assert.Equal(t, service.EventError, e.Event)
	}
	assert.Empty(t, rec.For("p1"), "errors are scoped to the requester")
	assert.Empty(t, rec.For("p2"))

	info, _ := svc.GetRoom(ctx, "A")
	assert.Equal(t, "p2", info.PlayerO)
}

func TestGameService_MakeMove(t *testing.T) {
	ctx := context.Background()
	svc, rec := startedGame(t)

	require.NoError(t, svc.MakeMove(ctx, "p1", mv(4, "X")))

	want := sentEvent{Event: service.EventUpdateBoard, Data: service.BoardUpdate{Index: 4, Symbol: "X"}}
	for _, p := range []string{"p1", "p2"} {
		events := rec.For(p)
		require.Len(t, events, 1)
		want.To = p
		assert.Equal(t, want, events[0])
	}

	info, _ := svc.GetRoom(ctx, "A")
	assert.Equal(t, "O", info.Turn)
	assert.Equal(t, "X", info.Board[4])
	assert.Equal(t, 1, info.Moves)
}

func TestGameService_MakeMoveRejections(t *testing.T) {
	ctx := context.Background()
	svc, rec := startedGame(t)
	play(t, svc, mv(0, "X"))

	tests := []struct {
		name        string
		participant string
		move        service.Move
		wantErr     error
	}{
		{"occupied cell", "p2", mv(0, "O"), board.ErrCellOccupied},
		{"wrong turn", "p1", mv(1, "X"), service.ErrNotYourTurn},
		{"symbol of the opponent", "p2", mv(1, "X"), service.ErrNotYourSymbol},
		{"stranger", "p9", mv(1, "O"), service.ErrNotInRoom},
		{"index below range", "p2", mv(-1, "O"), board.ErrInvalidCell},
		{"index above range", "p2", mv(9, "O"), board.ErrInvalidCell},
		{"unknown symbol", "p2", mv(1, "Z"), board.ErrInvalidSymbol},
		{"missing room", "p2", service.Move{RoomID: "B", Index: 1, Symbol: "O"}, room.ErrRoomNotFound},
	}

	before, _ := svc.GetRoom(ctx, "A")

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec.Clear()
			err := svc.MakeMove(ctx, tt.participant, tt.move)
			assert.ErrorIs(t, err, tt.wantErr)

			events := rec.For(tt.participant)
			require.Len(t, events, 1)
			assert.Equal(t, service.EventError, events[0].Event)

			for _, other := range []string{"p1", "p2"} {
				if other != tt.participant {
					assert.Empty(t, rec.For(other))
				}
			}

			after, _ := svc.GetRoom(ctx, "A")
			assert.Equal(t, before.Board, after.Board)
			assert.Equal(t, before.Turn, after.Turn)
			assert.Equal(t, before.Moves, after.Moves)
		})
	}
}

func TestGameService_WinDelaysEndGame(t *testing.T) {
	ctx := context.Background()
	svc, rec := startedGame(t, service.WithEndGameDelay(50*time.Millisecond))

	play(t, svc, mv(0, "X"), mv(3, "O"), mv(1, "X"), mv(4, "O"), mv(2, "X"))

	updates := rec.Named(service.EventUpdateBoard)
	assert.Len(t, updates, 10)
	assert.Empty(t, rec.Named(service.EventEndGame), "endGame waits for the delay")

	assert.Eventually(t, func() bool {
		return len(rec.Named(service.EventEndGame)) == 2
	}, time.Second, 5*time.Millisecond)

	for _, e := range rec.Named(service.EventEndGame) {
		assert.Equal(t, service.GameResult{Winner: "X"}, e.Data)
	}

	info, _ := svc.GetRoom(ctx, "A")
	assert.Equal(t, []string{"X", "X", "X", "O", "O", "", "", "", ""}, info.Board)
	assert.Equal(t, "X", info.Turn, "terminal move does not flip the turn")
	assert.Equal(t, service.StatusFinished, info.Status)
	assert.Equal(t, "X", info.Winner)
}

func TestGameService_MoveAfterWin(t *testing.T) {
	ctx := context.Background()
	svc, rec := startedGame(t)
	play(t, svc, mv(0, "X"), mv(3, "O"), mv(1, "X"), mv(4, "O"), mv(2, "X"))
	require.Len(t, rec.Named(service.EventEndGame), 2)

	// the turn stays with the winner, so O is still out of turn
	assert.ErrorIs(t, svc.MakeMove(ctx, "p2", mv(5, "O")), service.ErrNotYourTurn)
	// a member may not play the opponent's symbol
	assert.ErrorIs(t, svc.MakeMove(ctx, "p1", mv(5, "O")), service.ErrNotYourSymbol)

	require.NoError(t, svc.MakeMove(ctx, "p1", mv(5, "X")))
	assert.Len(t, rec.Named(service.EventEndGame), 4, "each terminal move announces again")
}

func TestGameService_StaleEndGameDropped(t *testing.T) {
	ctx := context.Background()
	const delay = 50 * time.Millisecond
	xWins := []service.Move{mv(0, "X"), mv(3, "O"), mv(1, "X"), mv(4, "O"), mv(2, "X")}

	t.Run("reset within delay", func(t *testing.T) {
		svc, rec := startedGame(t, service.WithEndGameDelay(delay), service.WithCoin(func() bool { return false }))
		play(t, svc, xWins...)
		require.NoError(t, svc.ResetGame(ctx, "p1", "A"))

		time.Sleep(3 * delay)
		assert.Empty(t, rec.Named(service.EventEndGame))

		events := rec.For("p1")
		assert.Equal(t, service.EventResetBoard, events[len(events)-1].Event)

		info, err := svc.GetRoom(ctx, "A")
		require.NoError(t, err)
		assert.Equal(t, service.StatusPlaying, info.Status)
	})

	t.Run("disconnect within delay", func(t *testing.T) {
		svc, rec := startedGame(t, service.WithEndGameDelay(delay))
		play(t, svc, xWins...)
		svc.Disconnect(ctx, "p1")

		time.Sleep(3 * delay)
		assert.Empty(t, rec.Named(service.EventEndGame))

		events := rec.For("p2")
		assert.Equal(t, service.EventRoomClosed, events[len(events)-1].Event)
	})

	t.Run("room recreated within delay", func(t *testing.T) {
		svc, rec := startedGame(t, service.WithEndGameDelay(delay))
		play(t, svc, xWins...)
		require.NoError(t, svc.CloseRoom(ctx, "A"))
		require.NoError(t, svc.CreateGame(ctx, "p3", "A"))

		time.Sleep(3 * delay)
		assert.Empty(t, rec.Named(service.EventEndGame))
	})
}

func TestGameService_Draw(t *testing.T) {
	ctx := context.Background()
	svc, rec := startedGame(t)

	// X O X
	// X O O
	// O X X
	play(t, svc,
		mv(0, "X"), mv(1, "O"), mv(2, "X"),
		mv(4, "O"), mv(3, "X"), mv(5, "O"),
		mv(7, "X"), mv(6, "O"), mv(8, "X"),
	)

	ends := rec.Named(service.EventEndGame)
	require.Len(t, ends, 2)
	assert.Equal(t, service.GameResult{Winner: "Draw"}, ends[0].Data)

	info, _ := svc.GetRoom(ctx, "A")
	assert.Equal(t, "Draw", info.Winner)
}

func TestGameService_ResetGame(t *testing.T) {
	ctx := context.Background()

	t.Run("roles kept", func(t *testing.T) {
		svc, rec := startedGame(t, service.WithCoin(func() bool { return false }))
		play(t, svc, mv(0, "X"), mv(4, "O"))
		rec.Clear()

		require.NoError(t, svc.ResetGame(ctx, "p2", "A"))
		assert.Equal(t, []sentEvent{
			{To: "p1", Event: service.EventAssignedRole, Data: "X"},
			{To: "p1", Event: service.EventResetBoard},
		}, rec.For("p1"))
		assert.Equal(t, []sentEvent{
			{To: "p2", Event: service.EventAssignedRole, Data: "O"},
			{To: "p2", Event: service.EventResetBoard},
		}, rec.For("p2"))

		info, _ := svc.GetRoom(ctx, "A")
		assert.Equal(t, make([]string, board.Size), info.Board)
		assert.Equal(t, "X", info.Turn)
		assert.Equal(t, 2, info.Rounds)
	})

	t.Run("roles swapped", func(t *testing.T) {
		svc, rec := startedGame(t, service.WithCoin(func() bool { return true }))
		require.NoError(t, svc.ResetGame(ctx, "p1", "A"))

		assert.Equal(t, "O", rec.For("p1")[0].Data)
		assert.Equal(t, "X", rec.For("p2")[0].Data)

		info, _ := svc.GetRoom(ctx, "A")
		assert.Equal(t, "p2", info.PlayerX, "seats follow the announced roles")
		assert.Equal(t, "p1", info.PlayerO)

		// the new X moves first
		require.NoError(t, svc.MakeMove(ctx, "p2", mv(4, "X")))
		assert.ErrorIs(t, svc.MakeMove(ctx, "p1", mv(0, "X")), service.ErrNotYourSymbol)
	})

	t.Run("missing room", func(t *testing.T) {
		svc, rec := newService(t)
		err := svc.ResetGame(ctx, "p1", "nope")
		assert.ErrorIs(t, err, room.ErrRoomNotFound)
		require.Len(t, rec.For("p1"), 1)
		assert.Equal(t, service.EventError, rec.For("p1")[0].Event)
	})

	t.Run("stranger", func(t *testing.T) {
		svc, _ := startedGame(t)
		assert.ErrorIs(t, svc.ResetGame(ctx, "p9", "A"), service.ErrNotInRoom)
	})

	t.Run("single participant keeps X", func(t *testing.T) {
		svc, rec := newService(t, service.WithCoin(func() bool { return true }))
		require.NoError(t, svc.CreateGame(ctx, "p1", "solo"))
		rec.Clear()
		require.NoError(t, svc.ResetGame(ctx, "p1", "solo"))
		assert.Equal(t, "X", rec.For("p1")[0].Data)
	})
}

func TestGameService_Disconnect(t *testing.T) {
	ctx := context.Background()
	svc, rec := startedGame(t)
	play(t, svc, mv(4, "X"))
	rec.Clear()

	svc.Disconnect(ctx, "p1")

	assert.Equal(t, []sentEvent{{
		To:    "p2",
		Event: service.EventRoomClosed,
		Data:  service.RoomClosed{RoomID: "A", Reason: service.CloseReasonDisconnect},
	}}, rec.For("p2"))
	assert.Empty(t, rec.For("p1"))

	_, err := svc.GetRoom(ctx, "A")
	assert.ErrorIs(t, err, room.ErrRoomNotFound)

	t.Run("later move is room-not-found", func(t *testing.T) {
		assert.ErrorIs(t, svc.MakeMove(ctx, "p2", mv(0, "O")), room.ErrRoomNotFound)
	})

	t.Run("later join is room-not-found", func(t *testing.T) {
		assert.ErrorIs(t, svc.JoinGame(ctx, "p3", "A"), room.ErrRoomNotFound)
	})

	t.Run("idempotent", func(t *testing.T) {
		rec.Clear()
		svc.Disconnect(ctx, "p1")
		svc.Disconnect(ctx, "never-seen")
		assert.Empty(t, rec.Named(service.EventRoomClosed))
	})

	t.Run("remaining participant can host again", func(t *testing.T) {
		assert.NoError(t, svc.CreateGame(ctx, "p2", "A"))
	})
}

func TestGameService_CloseRoom(t *testing.T) {
	ctx := context.Background()
	svc, rec := startedGame(t)

	require.NoError(t, svc.CloseRoom(ctx, "A"))
	closed := rec.Named(service.EventRoomClosed)
	require.Len(t, closed, 2)
	assert.Equal(t, service.RoomClosed{RoomID: "A", Reason: service.CloseReasonClosed}, closed[0].Data)

	assert.ErrorIs(t, svc.CloseRoom(ctx, "A"), room.ErrRoomNotFound)

	rooms, err := svc.ListRooms(ctx)
	require.NoError(t, err)
	assert.Empty(t, rooms)
}

func TestGameService_RoomsAreIsolated(t *testing.T) {
	ctx := context.Background()
	svc, rec := newService(t)
	require.NoError(t, svc.CreateGame(ctx, "a1", "A"))
	require.NoError(t, svc.JoinGame(ctx, "a2", "A"))
	require.NoError(t, svc.CreateGame(ctx, "b1", "B"))
	require.NoError(t, svc.JoinGame(ctx, "b2", "B"))
	rec.Clear()

	require.NoError(t, svc.MakeMove(ctx, "a1", mv(0, "X")))
	_ = svc.MakeMove(ctx, "b2", service.Move{RoomID: "B", Index: 0, Symbol: "O"})
	svc.Disconnect(ctx, "a2")

	assert.Len(t, rec.For("b1"), 0)
	assert.Len(t, rec.For("b2"), 1)

	info, err := svc.GetRoom(ctx, "B")
	require.NoError(t, err)
	assert.Equal(t, make([]string, board.Size), info.Board)

	rooms, _ := svc.ListRooms(ctx)
	require.Len(t, rooms, 1)
	assert.Equal(t, "B", rooms[0].ID)
}

// TestGameService_MoveProperties drives random move sequences from seated
// participants and checks acceptance, turn alternation and reset.
func TestGameService_MoveProperties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		ctx := context.Background()
		rec := &recorder{}
		svc := service.NewGameService(room.NewRegistry(), rec,
			service.WithEndGameDelay(0),
			service.WithCoin(func() bool { return false }),
		)
		if err := svc.CreateGame(ctx, "p1", "A"); err != nil {
			t.Fatal(err)
		}
		if err := svc.JoinGame(ctx, "p2", "A"); err != nil {
			t.Fatal(err)
		}
		players := map[string]string{"X": "p1", "O": "p2"}

		steps := rapid.IntRange(1, 30).Draw(t, "steps")
		for i := 0; i < steps; i++ {
			before, _ := svc.GetRoom(ctx, "A")

			if rapid.IntRange(0, 9).Draw(t, "reset") == 0 {
				if err := svc.ResetGame(ctx, "p1", "A"); err != nil {
					t.Fatal(err)
				}
				after, _ := svc.GetRoom(ctx, "A")
				if after.Turn != "X" || after.Moves != 0 {
					t.Fatalf("reset left turn %q moves %d", after.Turn, after.Moves)
				}
				for _, c := range after.Board {
					if c != "" {
						t.Fatalf("reset left board %v", after.Board)
					}
				}
				continue
			}

			index := rapid.IntRange(0, board.Size-1).Draw(t, "index")
			symbol := rapid.SampledFrom([]string{"X", "O"}).Draw(t, "symbol")
			err := svc.MakeMove(ctx, players[symbol], service.Move{RoomID: "A", Index: index, Symbol: symbol})

			after, _ := svc.GetRoom(ctx, "A")
			legal := before.Board[index] == "" && before.Turn == symbol
			if legal != (err == nil) {
				t.Fatalf("move %s@%d on %v turn %s: legal=%v err=%v", symbol, index, before.Board, before.Turn, legal, err)
			}
			if err != nil {
				if after.Turn != before.Turn || after.Moves != before.Moves {
					t.Fatalf("rejected move mutated room: %+v -> %+v", before, after)
				}
				for j := range before.Board {
					if before.Board[j] != after.Board[j] {
						t.Fatalf("rejected move changed cell %d", j)
					}
				}
				continue
			}
			if after.Board[index] != symbol {
				t.Fatalf("cell %d = %q, want %q", index, after.Board[index], symbol)
			}
			if after.Status != service.StatusFinished && after.Turn == symbol {
				t.Fatalf("turn did not alternate after non-terminal move")
			}
			if after.Status == service.StatusFinished && after.Turn != symbol {
				t.Fatalf("terminal move flipped the turn")
			}
		}
	})
}
