package models

// EntityType 通知/投票所指向的实体种类
type EntityType string

const (
	EntityThread        EntityType = "thread"
	EntityResponse      EntityType = "response"
	EntityUser          EntityType = "user"
	EntityDirectMessage EntityType = "direct_message"
)
