// Package devq provides a generic command queue and transaction engine for
// driving laboratory test instruments over flaky serial/USB transports.
//
// Each physical device gets one Manager with a dedicated background worker:
// the worker is the only goroutine that ever touches the device transport,
// so orchestration code never blocks on, or locks around, device I/O.
//
// Key Features:
//   - Prioritized Submission: three bounded queues (High/Normal/Low) drained
//     in strict priority order, FIFO within a level, no aging.
//   - Blocking and Async Completion: Exec suspends the caller until the
//     command completes or times out; Submit returns immediately and invokes
//     a callback on the worker goroutine, exactly once either way.
//   - Transactions: capacity-bounded command batches enqueued atomically at
//     commit time, with a single aggregate callback once every member has
//     resolved.
//   - Cancellation: by id, by type, by age, wholesale, or per transaction —
//     all best-effort, point-in-queue, never aborting an in-flight command.
//   - Reconnection: disconnects detected during execution switch the worker
//     into a reconnect loop with exponential backoff; queued commands stay
//     queued and run once the device comes back.
//   - Adapter Seam: the Adapter interface is the only place device-specific
//     protocol code plugs in; the engine never sees an instrument's wire
//     format.
//
// Usage Example:
//
//	cfg, _ := devq.NewConfig(devq.WithQueueSize(128))
//	mgr, err := devq.New(ctx, adapter, device, cfg)
//	// ... handle error ...
//	defer mgr.Close()
//
//	// blocking read with a deadline
//	result, err := mgr.Exec(cmdReadVoltage, nil, devq.PriorityNormal, 2*time.Second)
//
//	// fire-and-forget setpoint change
//	id, err := mgr.Submit(cmdSetCurrent, params, devq.PriorityHigh, onDone, nil)
//
//	// atomic multi-step setup
//	txn := mgr.BeginTransaction()
//	_ = mgr.AddToTransaction(txn, cmdSetVoltage, v)
//	_ = mgr.AddToTransaction(txn, cmdSetCurrent, c)
//	_ = mgr.CommitTransaction(txn, onTxnDone, nil)
package devq
