package rcapb

import (
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func errUnimplemented(method string) error {
	return status.Error(codes.Unimplemented, fmt.Sprintf("method %s not implemented", method))
}
