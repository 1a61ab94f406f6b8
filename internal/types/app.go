package types

// AppItem represents one shortcut shown in the launcher grid
type AppItem struct {
	Name string `json:"name"` // file name without extension
	Path string `json:"path"`
	Icon string `json:"icon,omitempty"` // data URL, empty when no icon is available
}

// AppList represents the result of a shortcuts folder scan
type AppList struct {
	Apps        []AppItem `json:"apps"`
	FolderFound bool      `json:"folderFound"`
	IsEmpty     bool      `json:"isEmpty"`
}
