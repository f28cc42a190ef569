package model

type Document struct {
	ID         string `json:"id"`
	Filename   string `json:"filename"`
	Role       string `json:"role"`
	UploadedBy string `json:"uploaded_by"`
	FileKey    string `json:"file_key"`
	ChunkCount int    `json:"chunk_count"`
	Ctime      int64  `json:"ctime"`
}
