package remote

import (
	"encoding/json"

	"pharma-backoffice/internal/domain"
)

// ManageUsersPath cmd/api 提供，后台调用
const ManageUsersPath = "/functions/manage-users"

const (
	ActionAddUser    = "addUser"
	ActionUpdateUser = "updateUser"
	ActionDeleteUser = "deleteUser"
	ActionListUsers  = "listUsers"
	ActionGetUser    = "getUser"
)

// Request manage-users 请求体
type Request struct {
	Action string       `json:"action"`
	ID     string       `json:"id,omitempty"`
	User   *domain.User `json:"user,omitempty"`
}

// envelope 对应 response.Resp，data 延后解码
type envelope struct {
	Code int             `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}
