package cobs

// Version is the release version of the COBS library and CLI.
const Version = "0.3.1"
