package endpoint

import (
	"net"
	"strconv"
)

// expandListenAddr 把实际绑定地址展开为可拨号地址列表
//
// 绑定在通配地址（0.0.0.0 / ::）上时，枚举本机接口地址，
// 否则原样返回。链路本地地址不对外公布。
func expandListenAddr(bound *net.UDPAddr) []string {
	if !bound.IP.IsUnspecified() {
		return []string{bound.String()}
	}

	ifaceAddrs, err := net.InterfaceAddrs()
	if err != nil {
		logger.Warn("枚举接口地址失败", "error", err)
		return []string{bound.String()}
	}

	wantV4 := bound.IP.To4() != nil
	port := strconv.Itoa(bound.Port)

	var out []string
	for _, ia := range ifaceAddrs {
		ipnet, ok := ia.(*net.IPNet)
		if !ok {
			continue
		}
		ip := ipnet.IP
		isV4 := ip.To4() != nil
		if isV4 != wantV4 {
			continue
		}
		if ip.IsLinkLocalUnicast() {
			continue
		}
		out = append(out, net.JoinHostPort(ip.String(), port))
	}

	if len(out) == 0 {
		out = []string{bound.String()}
	}
	return out
}
