package logz

import (
	"time"

	"go.uber.org/zap"
)

func Error(err error) zap.Field {
	return zap.Error(err)
}

func ConfigFile(filename string) zap.Field {
	return zap.String("config_file", filename)
}

func OriginName(name string) zap.Field {
	return zap.String("origin_name", name)
}

func OriginURL(url string) zap.Field {
	return zap.String("origin_url", url)
}

func RuleName(name string) zap.Field {
	return zap.String("rule_name", name)
}

func RuleCount(count int) zap.Field {
	return zap.Int("rule_count", count)
}

func RoutingAction(action string) zap.Field {
	return zap.String("routing_action", action)
}

func RoutingReason(reason string) zap.Field {
	return zap.String("routing_reason", reason)
}

func MarketingHosts(hosts []string) zap.Field {
	return zap.Strings("marketing_hosts", hosts)
}

func RequestID(id string) zap.Field {
	return zap.String("request_id", id)
}

func HTTPPath(path string) zap.Field {
	return zap.String("http_path", path)
}

func HTTPIp(ip string) zap.Field {
	return zap.String("http_ip", ip)
}

func HTTPStatus(status int) zap.Field {
	return zap.Int("http_status", status)
}

func HTTPHost(host string) zap.Field {
	return zap.String("http_host", host)
}

func HTTPMethod(method string) zap.Field {
	return zap.String("http_method", method)
}

func HTTPScheme(scheme string) zap.Field {
	return zap.String("http_scheme", scheme)
}

func HTTPBytesWritten(n int64) zap.Field {
	return zap.Int64("http_bytes_written", n)
}

func Duration(d time.Duration) zap.Field {
	return zap.Duration("duration", d)
}

func Port(port int) zap.Field {
	return zap.Int("port", port)
}
