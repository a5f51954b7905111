package domain

import (
	"time"
)

// User account types
const (
	UserTypeBuyer = "buyer"
	UserTypeShop  = "shop"
	UserTypeAdmin = "admin"
)

type SysUser struct {
	ID        int64     `json:"id,string" form:"id"`
	Email     string    `gorm:"size:200;uniqueIndex" json:"email" form:"email"`
	Username  string    `gorm:"size:150;uniqueIndex" json:"username" form:"username"`
	Password  string    `json:"-" form:"password"`
	Realname  string    `json:"realname" form:"realname"`
	Type      string    `gorm:"size:16" json:"type" form:"type"`
	Status    string    `json:"status" form:"status"`
	LastLogin time.Time `json:"last_login" form:"last_login"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName Specify table name
func (SysUser) TableName() string {
	return "sys_user"
}

// Contact is a delivery address/phone record owned by a user
type Contact struct {
	ID        int64     `json:"id,string" form:"id"`
	UserId    int64     `gorm:"index" json:"user_id,string" form:"user_id"`
	City      string    `gorm:"size:50" json:"city" form:"city"`
	Street    string    `gorm:"size:100" json:"street" form:"street"`
	House     string    `gorm:"size:15" json:"house" form:"house"`
	Structure string    `gorm:"size:15" json:"structure" form:"structure"`
	Building  string    `gorm:"size:15" json:"building" form:"building"`
	Apartment string    `gorm:"size:15" json:"apartment" form:"apartment"`
	Phone     string    `gorm:"size:20" json:"phone" form:"phone"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Contact) TableName() string {
	return "contact"
}

type SysOprLog struct {
	ID        int64     `json:"id,string"`
	OprName   string    `json:"opr_name"`
	OprIp     string    `json:"opr_ip"`
	OptAction string    `json:"opt_action"`
	OptDesc   string    `json:"opt_desc"`
	OptTime   time.Time `gorm:"index" json:"opt_time"`
}

// TableName Specify table name
func (SysOprLog) TableName() string {
	return "sys_opr_log"
}
