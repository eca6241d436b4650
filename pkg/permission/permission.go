// Package permission decides which API actions a caller may perform.
package permission

import (
	"bytes"
	"context"
	_ "embed"

	"github.com/open-policy-agent/opa/v1/rego"
	"github.com/open-policy-agent/opa/v1/storage/inmem"

	"github.com/mpapenbr/async-race-service/log"
	"github.com/mpapenbr/async-race-service/pkg/auth"
)

type Permission string

const (
	PermissionRead        Permission = "read"
	PermissionRaceControl Permission = "race-control"
	PermissionGarageWrite Permission = "garage-write"
)

type PermissionEvaluator interface {
	HasPermission(ctx context.Context, a auth.Authentication, perm Permission) bool
}

type (
	OpaPermissionEvaluator struct {
		query rego.PreparedEvalQuery
		l     *log.Logger
	}
	EvalRequest struct {
		Roles  []auth.Role `json:"roles"`
		Action Permission  `json:"action"`
	}
)

var _ PermissionEvaluator = (*OpaPermissionEvaluator)(nil)

//go:embed policy.rego
var policy []byte

//go:embed data.json
var data []byte

func NewOpaPermissionEvaluator() (*OpaPermissionEvaluator, error) {
	l := log.Default().Named("permission").Named("opa")
	store := inmem.NewFromReader(bytes.NewReader(data))
	r := rego.New(
		rego.Query("data.ars.authz.allow"),
		rego.Module("ars.authz", string(policy)),
		rego.Store(store),
	)
	query, err := r.PrepareForEval(context.Background())
	if err != nil {
		l.Error("failed to prepare query", log.ErrorField(err))
		return nil, err
	}
	return &OpaPermissionEvaluator{query: query, l: l}, nil
}

//nolint:whitespace // editor/linter issue
func (ope *OpaPermissionEvaluator) HasPermission(
	ctx context.Context,
	a auth.Authentication,
	perm Permission,
) bool {
	req := EvalRequest{Roles: a.Roles(), Action: perm}
	rs, err := ope.query.Eval(ctx, rego.EvalInput(req))
	if err != nil {
		ope.l.Error("HasPermission", log.ErrorField(err))
		return false
	}
	ope.l.Debug("HasPermission",
		log.String("principal", a.Principal()),
		log.String("perm", string(perm)),
		log.Bool("allowed", rs.Allowed()))
	return rs.Allowed()
}
