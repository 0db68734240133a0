package config

type WorkerKeyStruct struct {
	SettlementQueue string
}

var WorkerKey = &WorkerKeyStruct{
	SettlementQueue: "settlement_queue",
}
