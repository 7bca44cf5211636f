package grpcsubstrate

import (
	"context"
	"fmt"
	"net"
	"sync"

	"github.com/transfermesh/dtk/internal/substrate"
	appErrors "github.com/transfermesh/dtk/pkg/errors"
	"github.com/transfermesh/dtk/pkg/utils"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// Group is the gRPC-backed substrate.Group: one process per rank,
// listening for peer connections and dialing every other peer's address.
type Group struct {
	rank   int
	peers  []string // address of every rank, including this one
	logger utils.Logger

	server *grpc.Server
	lis    net.Listener

	mu      sync.Mutex
	clients map[int]*messengerClient

	mailMu  sync.Mutex
	inboxes map[mailKey]chan []byte

	barrierMu   sync.Mutex
	barrierGen  int64
	barrierN    int
	barrierDone chan struct{}
}

type mailKey struct {
	from int
	tag  int32
}

var _ substrate.Group = (*Group)(nil)
var _ messengerServer = (*rpcHandler)(nil)

// rpcHandler adapts a *Group to messengerServer. It exists as a separate
// type because messengerServer's Send/Barrier method names collide with
// substrate.Group's own Send/Barrier, which take different arguments.
type rpcHandler struct {
	g *Group
}

func (h rpcHandler) Send(ctx context.Context, req *SendRequest) (*SendResponse, error) {
	return h.g.sendRPC(ctx, req)
}

func (h rpcHandler) Barrier(ctx context.Context, req *BarrierRequest) (*BarrierResponse, error) {
	return h.g.barrierRPC(ctx, req)
}

// Dial starts this rank's server on listenAddr. peers[rank] must equal
// this rank's own externally-reachable address; outbound connections to
// the remaining peers are opened lazily on first use.
func Dial(rank int, listenAddr string, peers []string, logger utils.Logger) (*Group, error) {
	lis, err := net.Listen("tcp", listenAddr)
	if err != nil {
		return nil, appErrors.Wrap(appErrors.CodeCommunication, "listen failed", err)
	}

	g := &Group{
		rank:    rank,
		peers:   peers,
		logger:  logger,
		lis:     lis,
		clients: make(map[int]*messengerClient),
		inboxes: make(map[mailKey]chan []byte),
	}

	g.server = grpc.NewServer()
	registerMessengerServer(g.server, rpcHandler{g: g})

	go func() {
		if err := g.server.Serve(lis); err != nil {
			g.logger.Warn("messenger server stopped: %v", err)
		}
	}()

	return g, nil
}

// Close stops the server and closes every outbound connection.
func (g *Group) Close() error {
	g.server.GracefulStop()
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, c := range g.clients {
		_ = c.cc.Close()
	}
	return nil
}

func (g *Group) Rank() int { return g.rank }
func (g *Group) Size() int { return len(g.peers) }

func (g *Group) clientFor(dest int) (*messengerClient, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if c, ok := g.clients[dest]; ok {
		return c, nil
	}
	cc, err := grpc.NewClient(g.peers[dest], grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, appErrors.Wrap(appErrors.CodeCommunication, fmt.Sprintf("dial rank %d failed", dest), err)
	}
	c := newMessengerClient(cc)
	g.clients[dest] = c
	return c, nil
}

// Send implements substrate.Group by invoking the remote Messenger.Send RPC.
func (g *Group) Send(ctx context.Context, dest int, tag substrate.Tag, payload []byte) error {
	if dest < 0 || dest >= g.Size() {
		return appErrors.New(appErrors.CodeCommunication, "rank out of range")
	}
	c, err := g.clientFor(dest)
	if err != nil {
		return err
	}
	_, err = c.Send(ctx, &SendRequest{From: int32(g.rank), Tag: int32(tag), Payload: payload})
	if err != nil {
		return appErrors.Wrap(appErrors.CodeCommunication, "send RPC failed", err)
	}
	return nil
}

// Recv blocks until a message from source under tag has been delivered by
// the server-side Send handler into this rank's inbox.
func (g *Group) Recv(ctx context.Context, source int, tag substrate.Tag) ([]byte, error) {
	if source < 0 || source >= g.Size() {
		return nil, appErrors.New(appErrors.CodeCommunication, "rank out of range")
	}
	ch := g.inboxFor(mailKey{from: source, tag: int32(tag)})
	select {
	case payload := <-ch:
		return payload, nil
	case <-ctx.Done():
		return nil, appErrors.Wrap(appErrors.CodeCommunication, "recv canceled", ctx.Err())
	}
}

func (g *Group) inboxFor(key mailKey) chan []byte {
	g.mailMu.Lock()
	defer g.mailMu.Unlock()
	ch, ok := g.inboxes[key]
	if !ok {
		ch = make(chan []byte, 1)
		g.inboxes[key] = ch
	}
	return ch
}

// sendRPC is the server side of the Messenger.Send RPC, reached through
// rpcHandler.Send: it deposits the payload into the local inbox for the
// (From, Tag) key, where a concurrent Recv is waiting.
func (g *Group) sendRPC(ctx context.Context, req *SendRequest) (*SendResponse, error) {
	ch := g.inboxFor(mailKey{from: int(req.From), tag: req.Tag})
	select {
	case ch <- req.Payload:
		return &SendResponse{}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Barrier implements substrate.Group's barrier via a simple centralized
// protocol: every rank other than 0 calls the rank-0 Barrier RPC and
// blocks until rank 0 has heard from every rank for the current
// generation (rank 0 counts its own local Barrier() call as one arrival).
func (g *Group) Barrier(ctx context.Context) error {
	g.barrierMu.Lock()
	gen := g.barrierGen
	g.barrierMu.Unlock()

	if g.rank == 0 {
		return g.hostBarrier(ctx, gen)
	}

	c, err := g.clientFor(0)
	if err != nil {
		return err
	}
	_, err = c.Barrier(ctx, &BarrierRequest{Rank: int32(g.rank), Generation: gen})
	if err != nil {
		return appErrors.Wrap(appErrors.CodeCommunication, "barrier RPC failed", err)
	}
	g.barrierMu.Lock()
	g.barrierGen++
	g.barrierMu.Unlock()
	return nil
}

func (g *Group) hostBarrier(ctx context.Context, gen int64) error {
	g.barrierMu.Lock()
	g.barrierN++
	if g.barrierDone == nil {
		g.barrierDone = make(chan struct{})
	}
	done := g.barrierDone
	arrived := g.barrierN
	g.barrierMu.Unlock()

	if arrived == g.Size() {
		g.barrierMu.Lock()
		g.barrierN = 0
		g.barrierGen = gen + 1
		g.barrierDone = nil
		g.barrierMu.Unlock()
		close(done)
		return nil
	}

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return appErrors.Wrap(appErrors.CodeCommunication, "barrier canceled", ctx.Err())
	}
}

// barrierRPC is the server-side handler for non-root ranks calling in.
func (g *Group) barrierRPC(ctx context.Context, req *BarrierRequest) (*BarrierResponse, error) {
	if err := g.hostBarrier(ctx, req.Generation); err != nil {
		return nil, err
	}
	return &BarrierResponse{Generation: req.Generation + 1}, nil
}
