package model

import "time"

type DeviceType string

const (
	DeviceTypePourOver DeviceType = "pour_over"
	DeviceTypeEspresso DeviceType = "espresso"
	DeviceTypeGrinder  DeviceType = "grinder"
	DeviceTypeOther    DeviceType = "other"
)

// DeviceTypeInfo pairs a device type with its display label.
type DeviceTypeInfo struct {
	Key   DeviceType `json:"key"`
	Label string     `json:"label"`
}

// DeviceTypes lists every device type in display order.
var DeviceTypes = []DeviceTypeInfo{
	{Key: DeviceTypePourOver, Label: "手冲设备"},
	{Key: DeviceTypeEspresso, Label: "意式设备"},
	{Key: DeviceTypeGrinder, Label: "磨豆机"},
	{Key: DeviceTypeOther, Label: "其他设备"},
}

// DefaultDeviceType is assigned to devices saved without a type.
const DefaultDeviceType = DeviceTypePourOver

// Device is a piece of brewing equipment. At most one device per type is
// the default.
type Device struct {
	ID         string     `json:"id"`
	Type       DeviceType `json:"type"  validate:"oneof=pour_over espresso grinder other"`
	Name       string     `json:"name"  validate:"required"`
	Brand      string     `json:"brand"`
	Model      string     `json:"model"`
	Notes      string     `json:"notes"`
	IsDefault  bool       `json:"isDefault"`
	CreateTime time.Time  `json:"createTime"`
	UpdateTime time.Time  `json:"updateTime"`
}

// DeviceGroup is one type's devices, default first.
type DeviceGroup struct {
	Key     DeviceType `json:"key"`
	Label   string     `json:"label"`
	Devices []Device   `json:"devices"`
}
