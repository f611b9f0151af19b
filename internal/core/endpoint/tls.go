package endpoint

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"fmt"
	"math/big"
	"time"

	"github.com/dep2p/go-weave/pkg/lib/crypto"
	"github.com/dep2p/go-weave/pkg/types"
)

// generateCertificate 用节点密钥生成自签名证书
//
// 证书公钥就是节点的 ed25519 公钥，对端从证书即可派生 NodeID，
// 身份不可伪造。没有 CA，信任完全建立在公钥派生上。
func generateCertificate(secret *crypto.SecretKey) (tls.Certificate, error) {
	priv := secret.Ed25519()
	pub := priv.Public()

	template := &x509.Certificate{
		SerialNumber: big.NewInt(time.Now().UnixNano()),
		Subject: pkix.Name{
			Organization: []string{"Weave"},
			CommonName:   "weave node " + secret.NodeID().ShortString(),
		},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(180 * 24 * time.Hour),
		KeyUsage:              x509.KeyUsageDigitalSignature,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth, x509.ExtKeyUsageClientAuth},
		BasicConstraintsValid: true,
	}

	der, err := x509.CreateCertificate(rand.Reader, template, template, pub, priv)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("create certificate: %w", err)
	}

	return tls.Certificate{
		Certificate: [][]byte{der},
		PrivateKey:  priv,
	}, nil
}

// serverTLSConfig 生成监听侧 TLS 配置
//
// NextProtos 是全部已注册的协议标签：对端请求未注册的标签时，
// ALPN 协商失败，连接在握手阶段就被拒绝。
//
// InsecureSkipVerify 关闭的是标准 CA 链验证。自签名证书没有 CA，
// 身份由 VerifyPeerCertificate 从公钥派生保证。
func serverTLSConfig(cert tls.Certificate, alpns []string) *tls.Config {
	return &tls.Config{
		Certificates:          []tls.Certificate{cert},
		NextProtos:            alpns,
		MinVersion:            tls.VersionTLS13,
		InsecureSkipVerify:    true,
		ClientAuth:            tls.RequireAnyClientCert,
		VerifyPeerCertificate: verifyPeer(types.NodeID{}),
	}
}

// clientTLSConfig 生成拨号侧 TLS 配置
//
// 只携带要拨的那一个协议标签，并把对端身份钉死在 expected 上。
func clientTLSConfig(cert tls.Certificate, alpn string, expected types.NodeID) *tls.Config {
	return &tls.Config{
		Certificates:          []tls.Certificate{cert},
		NextProtos:            []string{alpn},
		MinVersion:            tls.VersionTLS13,
		InsecureSkipVerify:    true,
		VerifyPeerCertificate: verifyPeer(expected),
	}
}

// verifyPeer 构造对端证书验证函数
//
// 验证逻辑：
//  1. 证书公钥必须是 ed25519，从中派生 NodeID（不可伪造）
//  2. expected 非空时，派生值必须与 expected 一致
//  3. 验证证书有效期
func verifyPeer(expected types.NodeID) func(rawCerts [][]byte, _ [][]*x509.Certificate) error {
	return func(rawCerts [][]byte, _ [][]*x509.Certificate) error {
		if len(rawCerts) == 0 {
			return fmt.Errorf("对端未提供证书")
		}

		cert, err := x509.ParseCertificate(rawCerts[0])
		if err != nil {
			return fmt.Errorf("解析证书失败: %w", err)
		}

		derived, err := deriveNodeID(cert)
		if err != nil {
			return err
		}

		if !expected.IsEmpty() && !derived.Equal(expected) {
			return fmt.Errorf("NodeID 验证失败: 期望 %s, 实际 %s",
				expected.ShortString(), derived.ShortString())
		}

		now := time.Now()
		if now.Before(cert.NotBefore) {
			return fmt.Errorf("证书尚未生效: NotBefore=%v", cert.NotBefore)
		}
		if now.After(cert.NotAfter) {
			return fmt.Errorf("证书已过期: NotAfter=%v", cert.NotAfter)
		}

		return nil
	}
}

// deriveNodeID 从证书公钥派生 NodeID
//
// NodeID 就是原始 32 字节 ed25519 公钥。
func deriveNodeID(cert *x509.Certificate) (types.NodeID, error) {
	pub, ok := cert.PublicKey.(ed25519.PublicKey)
	if !ok {
		return types.NodeID{}, fmt.Errorf("不支持的公钥类型: %T", cert.PublicKey)
	}
	return types.NodeIDFromBytes(pub)
}

// extractRemoteID 从 TLS 连接状态提取对端 NodeID
func extractRemoteID(state tls.ConnectionState) (types.NodeID, error) {
	if len(state.PeerCertificates) == 0 {
		return types.NodeID{}, fmt.Errorf("对端未提供 TLS 证书")
	}
	pub, ok := state.PeerCertificates[0].PublicKey.(ed25519.PublicKey)
	if !ok {
		return types.NodeID{}, fmt.Errorf("不支持的公钥类型: %T", state.PeerCertificates[0].PublicKey)
	}
	return types.NodeIDFromBytes(pub)
}
