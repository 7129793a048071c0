package domain

var Tables = []interface{}{
	// System
	&SysConfig{},
	&SysOpr{},
	&SysOprLog{},
	// Tenancy
	&Tenant{},
	// Messaging channel
	&ChannelInstance{},
	&ChannelOprLog{},
}
