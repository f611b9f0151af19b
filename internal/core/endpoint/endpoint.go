package endpoint

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"sync"
	"sync/atomic"

	"github.com/quic-go/quic-go"
	"go.uber.org/multierr"

	"github.com/dep2p/go-weave/config"
	"github.com/dep2p/go-weave/internal/core/identity"
	"github.com/dep2p/go-weave/pkg/interfaces"
	"github.com/dep2p/go-weave/pkg/types"
)

// errCodeAuth 身份提取失败时的应用层错误码
const errCodeAuth = quic.ApplicationErrorCode(1)

// socket 一个地址族的共享 UDP socket
//
// 监听与拨号复用同一个 quic.Transport，对端看到的源端口
// 始终是监听端口。
type socket struct {
	udpConn   *net.UDPConn
	transport *quic.Transport
	listener  *quic.Listener
	isV4      bool
}

// Endpoint QUIC 网络端点实现
type Endpoint struct {
	identity *identity.Identity
	book     interfaces.AddressBook
	alpns    []string
	netCfg   config.NetworkConfig

	cert     tls.Certificate
	quicConf *quic.Config

	mu      sync.Mutex
	sockets []*socket
	addrs   []string
	started bool

	acceptCh chan interfaces.Connection
	online   chan struct{}
	done     chan struct{}
	closed   atomic.Bool
	wg       sync.WaitGroup
}

// 确保实现接口
var _ interfaces.Endpoint = (*Endpoint)(nil)

// New 创建端点
//
// alpns 是全部已注册的协议标签，进入监听侧 TLS 配置；
// 不在其中的标签无法完成 ALPN 协商。
func New(cfg *config.Config, id *identity.Identity, book interfaces.AddressBook, alpns []string) (*Endpoint, error) {
	if len(alpns) == 0 {
		return nil, ErrNoALPN
	}

	cert, err := generateCertificate(id.SecretKey())
	if err != nil {
		return nil, err
	}

	return &Endpoint{
		identity: id,
		book:     book,
		alpns:    alpns,
		netCfg:   cfg.Network,
		cert:     cert,
		quicConf: &quic.Config{
			MaxIdleTimeout:     cfg.Network.MaxIdleTimeout.Duration(),
			KeepAlivePeriod:    cfg.Network.KeepAlivePeriod.Duration(),
			MaxIncomingStreams: 1024,
			// 协议全部走双向流，不收单向流
			MaxIncomingUniStreams: -1,
		},
		acceptCh: make(chan interfaces.Connection),
		online:   make(chan struct{}),
		done:     make(chan struct{}),
	}, nil
}

// ID 返回本节点标识
func (e *Endpoint) ID() types.NodeID {
	return e.identity.NodeID()
}

// Addrs 返回已绑定的监听地址
func (e *Endpoint) Addrs() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.addrs...)
}

// NodeAddr 返回本节点的地址记录
func (e *Endpoint) NodeAddr() types.NodeAddr {
	return types.NodeAddr{ID: e.ID(), Addrs: e.Addrs()}
}

// Online 返回在线信号通道
func (e *Endpoint) Online() <-chan struct{} {
	return e.online
}

// Start 绑定监听 socket 并开始接受连接
//
// 两个地址族独立绑定，一个失败不影响另一个，全部失败才报错。
func (e *Endpoint) Start(_ context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed.Load() {
		return ErrEndpointClosed
	}
	if e.started {
		return nil
	}

	serverConf := serverTLSConfig(e.cert, e.alpns)

	families := []struct {
		network string
		addr    string
		isV4    bool
	}{
		{"udp4", e.netCfg.IPv4Addr, true},
		{"udp6", e.netCfg.IPv6Addr, false},
	}

	var errs error
	for _, f := range families {
		if f.addr == "" {
			continue
		}

		udpAddr, err := net.ResolveUDPAddr(f.network, f.addr)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("resolve %s: %w", f.addr, err))
			continue
		}

		udpConn, err := net.ListenUDP(f.network, udpAddr)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("listen %s: %w", f.addr, err))
			continue
		}

		tr := &quic.Transport{Conn: udpConn}
		ln, err := tr.Listen(serverConf, e.quicConf)
		if err != nil {
			_ = tr.Close()
			_ = udpConn.Close()
			errs = multierr.Append(errs, fmt.Errorf("quic listen %s: %w", f.addr, err))
			continue
		}

		e.sockets = append(e.sockets, &socket{
			udpConn:   udpConn,
			transport: tr,
			listener:  ln,
			isV4:      f.isV4,
		})
		e.addrs = append(e.addrs, expandListenAddr(udpConn.LocalAddr().(*net.UDPAddr))...)

		e.wg.Add(1)
		go e.acceptLoop(ln)
	}

	if len(e.sockets) == 0 {
		if errs == nil {
			errs = fmt.Errorf("no listen addresses configured")
		}
		return errs
	}
	if errs != nil {
		logger.Warn("部分地址族绑定失败", "error", errs)
	}

	e.started = true
	close(e.online)
	logger.Info("端点已上线",
		"node_id", e.identity.NodeID().ShortString(),
		"addrs", e.addrs)
	return nil
}

// acceptLoop 接受一个监听器上的全部接入连接
func (e *Endpoint) acceptLoop(ln *quic.Listener) {
	defer e.wg.Done()

	for {
		qc, err := ln.Accept(context.Background())
		if err != nil {
			if !e.closed.Load() {
				logger.Warn("监听器退出", "error", err)
			}
			return
		}

		state := qc.ConnectionState().TLS
		remoteID, err := extractRemoteID(state)
		if err != nil {
			logger.Warn("拒绝无身份连接", "remote", qc.RemoteAddr(), "error", err)
			_ = qc.CloseWithError(errCodeAuth, "identity required")
			continue
		}

		conn := newConnection(qc, remoteID, state.NegotiatedProtocol)
		select {
		case e.acceptCh <- conn:
		case <-e.done:
			_ = conn.Close()
			return
		}
	}
}

// Accept 等待下一个接入连接
func (e *Endpoint) Accept(ctx context.Context) (interfaces.Connection, error) {
	select {
	case conn := <-e.acceptCh:
		return conn, nil
	case <-e.done:
		return nil, ErrEndpointClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Dial 按协议标签拨号到指定节点
//
// addr.Addrs 为空时通过地址簿补全，逐个地址尝试，第一个握手
// 成功的连接胜出。成功后把可用地址记回地址簿。
func (e *Endpoint) Dial(ctx context.Context, addr types.NodeAddr, alpn string) (interfaces.Connection, error) {
	if e.closed.Load() {
		return nil, ErrEndpointClosed
	}
	if alpn == "" {
		return nil, ErrNoALPN
	}
	if addr.ID.IsEmpty() {
		return nil, types.ErrInvalidNodeID
	}
	if addr.ID.Equal(e.ID()) {
		return nil, fmt.Errorf("dial %s: cannot dial self", addr.ID.ShortString())
	}

	candidates := addr.Addrs
	if len(candidates) == 0 {
		if known, ok := e.book.Lookup(addr.ID); ok {
			candidates = known.Addrs
		}
	}
	if len(candidates) == 0 {
		return nil, fmt.Errorf("dial %s: %w", addr.ID.ShortString(), types.ErrNoAddresses)
	}

	e.mu.Lock()
	if !e.started {
		e.mu.Unlock()
		return nil, ErrNotStarted
	}
	sockets := append([]*socket(nil), e.sockets...)
	e.mu.Unlock()

	clientConf := clientTLSConfig(e.cert, alpn, addr.ID)

	var errs error
	for _, cand := range candidates {
		udpAddr, err := net.ResolveUDPAddr("udp", cand)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("resolve %s: %w", cand, err))
			continue
		}

		sock := pickSocket(sockets, udpAddr)
		if sock == nil {
			errs = multierr.Append(errs, fmt.Errorf("no local socket for %s", cand))
			continue
		}

		qc, err := sock.transport.Dial(ctx, udpAddr, clientConf, e.quicConf)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("dial %s: %w", cand, err))
			continue
		}

		// 记住实际可用的地址
		_ = e.book.Add(types.NodeAddr{ID: addr.ID, Addrs: []string{cand}})

		logger.Debug("拨号成功",
			"node", addr.ID.ShortString(),
			"addr", cand,
			"alpn", alpn)
		return newConnection(qc, addr.ID, qc.ConnectionState().TLS.NegotiatedProtocol), nil
	}

	return nil, fmt.Errorf("dial %s: %w", addr.ID.ShortString(), errs)
}

// pickSocket 按目标地址族选择本地 socket
func pickSocket(sockets []*socket, target *net.UDPAddr) *socket {
	wantV4 := target.IP.To4() != nil
	for _, s := range sockets {
		if s.isV4 == wantV4 {
			return s
		}
	}
	return nil
}

// Close 关闭端点，中断全部连接。幂等。
func (e *Endpoint) Close() error {
	if e.closed.Swap(true) {
		return nil
	}
	close(e.done)

	e.mu.Lock()
	sockets := e.sockets
	e.sockets = nil
	e.mu.Unlock()

	var errs error
	for _, s := range sockets {
		errs = multierr.Append(errs, s.listener.Close())
		_ = s.transport.Close()
		_ = s.udpConn.Close()
	}

	e.wg.Wait()
	return errs
}
