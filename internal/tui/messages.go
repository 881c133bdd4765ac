package tui

import "github.com/tonimelisma/spe-client/pkg/spe"

type fetchDoneMsg struct {
	err error
}

type deleteDoneMsg struct {
	name string
	err  error
}

type folderCreatedMsg struct {
	item spe.DriveItem
	err  error
}
