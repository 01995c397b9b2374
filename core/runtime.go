package core

import "time"

// Version of the engine.
var Version string

// BuildTime contains the timestamp of when this build was produced.
var BuildTime string

// StartTimestamp is the time the engine was started.
var StartTimestamp time.Time

// NumWorkerThreads is the number of datapath worker threads.
var NumWorkerThreads int
