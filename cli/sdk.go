package cli

import "github.com/absmach/cohort/pkg/sdk"

var (
	DefTLSVerification        = false
	DefHostURL                = "http://localhost:7070"
	defOffset          uint64 = 0
	defLimit           uint64 = 10
)

var csdk sdk.SDK

func SetSDK(s sdk.SDK) {
	csdk = s
}
