package domain

var Tables = []interface{}{
	// System
	&SysUser{},
	&SysOprLog{},
	&Contact{},
	// Catalog
	&Shop{},
	&Category{},
	&ShopCategory{},
	&Product{},
	&ProductInfo{},
	&Parameter{},
	&ProductParameter{},
	// Orders
	&Order{},
	&OrderItem{},
}
