package usecase

import (
	"context"
	"testing"

	aviatormachine "github.com/Destroyer690420/stakex-sub001/internal/modules/aviator/machine"
	coinflipmachine "github.com/Destroyer690420/stakex-sub001/internal/modules/coinflip/machine"
	pokerdomain "github.com/Destroyer690420/stakex-sub001/internal/modules/poker/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRoster struct {
	joined []string
	left   []string
}

func (r *fakeRoster) Join(userID int64, room string)  { r.joined = append(r.joined, room) }
func (r *fakeRoster) Leave(userID int64, room string) { r.left = append(r.left, room) }

type sentMessage struct {
	userID  int64
	room    string
	command string
	data    interface{}
}

type fakeSender struct {
	broadcasts []sentMessage
	privates   []sentMessage
}

func (s *fakeSender) Broadcast(room, command string, data interface{}) {
	s.broadcasts = append(s.broadcasts, sentMessage{room: room, command: command, data: data})
}

func (s *fakeSender) SendToUser(userID int64, room, command string, data interface{}) {
	s.privates = append(s.privates, sentMessage{userID: userID, room: room, command: command, data: data})
}

type fakeAviator struct {
	bets []struct {
		amount      float64
		betNumber   int
		autoCashout float64
	}
	cashouts []struct {
		betNumber        int
		clientMultiplier float64
	}
}

func (a *fakeAviator) Snapshot() aviatormachine.Snapshot { return aviatormachine.Snapshot{} }

func (a *fakeAviator) PlaceBet(ctx context.Context, userID int64, username string, amount float64, betNumber int, autoCashout float64) {
	a.bets = append(a.bets, struct {
		amount      float64
		betNumber   int
		autoCashout float64
	}{amount, betNumber, autoCashout})
}

func (a *fakeAviator) CashOut(ctx context.Context, userID int64, betNumber int, clientMultiplier float64) {
	a.cashouts = append(a.cashouts, struct {
		betNumber        int
		clientMultiplier float64
	}{betNumber, clientMultiplier})
}

type fakeCoinflip struct {
	bets  []string
	chats []string
}

func (c *fakeCoinflip) Snapshot() coinflipmachine.Snapshot { return coinflipmachine.Snapshot{} }

func (c *fakeCoinflip) PlaceBet(ctx context.Context, userID int64, username string, amount float64, side string) {
	c.bets = append(c.bets, side)
}

func (c *fakeCoinflip) Chat(userID int64, username, message string) {
	c.chats = append(c.chats, message)
}

type pokerCall struct {
	op     string
	roomID string
	amount int64
	action string
}

type fakePoker struct {
	calls   []pokerCall
	joinErr error
}

func (p *fakePoker) JoinRoom(ctx context.Context, userID int64, username, roomID string, buyInCents int64) error {
	p.calls = append(p.calls, pokerCall{op: "join", roomID: roomID, amount: buyInCents})
	return p.joinErr
}

func (p *fakePoker) LeaveRoom(ctx context.Context, userID int64, roomID string) error {
	p.calls = append(p.calls, pokerCall{op: "leave", roomID: roomID})
	return nil
}

func (p *fakePoker) HandleAction(ctx context.Context, userID int64, roomID, action string, amountCents int64) error {
	p.calls = append(p.calls, pokerCall{op: "action", roomID: roomID, action: action, amount: amountCents})
	return nil
}

func (p *fakePoker) Snapshot(roomID string, viewerID int64) (map[string]interface{}, error) {
	return map[string]interface{}{"room_id": roomID}, nil
}

func (p *fakePoker) Chat(roomID string, username, message string) {
	p.calls = append(p.calls, pokerCall{op: "chat", roomID: roomID})
}

type fixture struct {
	uc       *GatewayUseCase
	roster   *fakeRoster
	sender   *fakeSender
	aviator  *fakeAviator
	coinflip *fakeCoinflip
	poker    *fakePoker
}

func newFixture() *fixture {
	f := &fixture{
		roster:   &fakeRoster{},
		sender:   &fakeSender{},
		aviator:  &fakeAviator{},
		coinflip: &fakeCoinflip{},
		poker:    &fakePoker{},
	}
	f.uc = NewGatewayUseCase(f.roster, f.sender, f.aviator, f.coinflip, f.poker)
	return f
}

func (f *fixture) handle(t *testing.T, msg string) error {
	t.Helper()
	return f.uc.HandleMessage(context.Background(), 1, "alice", []byte(msg))
}

func TestJoinSendsSnapshot(t *testing.T) {
	f := newFixture()

	require.NoError(t, f.handle(t, `{"game":"aviator","command":"join","data":{}}`))

	assert.Equal(t, []string{"aviator"}, f.roster.joined)
	require.Len(t, f.sender.privates, 1)
	assert.Equal(t, "snapshot", f.sender.privates[0].command)
	assert.Equal(t, "aviator", f.sender.privates[0].room)
}

func TestAviatorCommandsRouted(t *testing.T) {
	f := newFixture()

	require.NoError(t, f.handle(t, `{"game":"aviator","command":"place_bet","data":{"amount":25.5,"betNumber":2,"autoCashout":2.0}}`))
	require.NoError(t, f.handle(t, `{"game":"aviator","command":"cash_out","data":{"betNumber":2,"clientMultiplier":1.8}}`))

	require.Len(t, f.aviator.bets, 1)
	assert.Equal(t, 25.5, f.aviator.bets[0].amount)
	assert.Equal(t, 2, f.aviator.bets[0].betNumber)
	assert.Equal(t, 2.0, f.aviator.bets[0].autoCashout)

	require.Len(t, f.aviator.cashouts, 1)
	assert.Equal(t, 1.8, f.aviator.cashouts[0].clientMultiplier)
}

func TestCoinflipCommandsRouted(t *testing.T) {
	f := newFixture()

	require.NoError(t, f.handle(t, `{"game":"coinflip","command":"join","data":{}}`))
	require.NoError(t, f.handle(t, `{"game":"coinflip","command":"placeBet","data":{"amount":10,"side":"heads"}}`))
	require.NoError(t, f.handle(t, `{"game":"coinflip","command":"chatMessage","data":{"message":"gl all"}}`))

	assert.Equal(t, []string{"coinflip"}, f.roster.joined)
	assert.Equal(t, []string{"heads"}, f.coinflip.bets)
	assert.Equal(t, []string{"gl all"}, f.coinflip.chats)
}

func TestPokerJoinSubscribesAndSnapshots(t *testing.T) {
	f := newFixture()

	require.NoError(t, f.handle(t, `{"game":"poker","command":"joinRoom","data":{"roomId":"table-1","buyInAmount":100}}`))

	require.Len(t, f.poker.calls, 1)
	assert.Equal(t, "join", f.poker.calls[0].op)
	assert.Equal(t, int64(10000), f.poker.calls[0].amount)

	assert.Equal(t, []string{"poker/table-1"}, f.roster.joined)
	require.Len(t, f.sender.privates, 1)
	assert.Equal(t, "snapshot", f.sender.privates[0].command)
	assert.Equal(t, "poker/table-1", f.sender.privates[0].room)
}

func TestPokerJoinRejectionSendsError(t *testing.T) {
	f := newFixture()
	f.poker.joinErr = pokerdomain.ErrRoomFull

	require.NoError(t, f.handle(t, `{"game":"poker","command":"joinRoom","data":{"roomId":"table-1","buyInAmount":100}}`))

	assert.Empty(t, f.roster.joined)
	require.Len(t, f.sender.privates, 1)
	assert.Equal(t, "error", f.sender.privates[0].command)
}

func TestPokerActionConvertsAmountToCents(t *testing.T) {
	f := newFixture()

	require.NoError(t, f.handle(t, `{"game":"poker","command":"playerAction","data":{"roomId":"table-1","action":"raise","amount":3.5}}`))

	require.Len(t, f.poker.calls, 1)
	assert.Equal(t, "action", f.poker.calls[0].op)
	assert.Equal(t, "raise", f.poker.calls[0].action)
	assert.Equal(t, int64(350), f.poker.calls[0].amount)
}

func TestLeaveRoomUnsubscribes(t *testing.T) {
	f := newFixture()

	require.NoError(t, f.handle(t, `{"game":"poker","command":"leaveRoom","data":{"roomId":"table-1"}}`))

	require.Len(t, f.poker.calls, 1)
	assert.Equal(t, "leave", f.poker.calls[0].op)
	assert.Equal(t, []string{"poker/table-1"}, f.roster.left)
}

func TestProtocolErrors(t *testing.T) {
	f := newFixture()

	assert.Error(t, f.handle(t, `not json`))
	assert.Error(t, f.handle(t, `{"command":"join"}`))
	assert.Error(t, f.handle(t, `{"game":"roulette","command":"spin"}`))
	assert.Error(t, f.handle(t, `{"game":"aviator","command":"warp"}`))
}

func TestDisconnectFoldsPokerSeatsOnly(t *testing.T) {
	f := newFixture()

	f.uc.HandleDisconnect(1, []string{"aviator", "poker/table-1", "coinflip"})

	require.Len(t, f.poker.calls, 1)
	assert.Equal(t, "leave", f.poker.calls[0].op)
	assert.Equal(t, "table-1", f.poker.calls[0].roomID)
}
