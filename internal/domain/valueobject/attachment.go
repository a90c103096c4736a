package valueobject

// Attachment 附件值对象: 指向附件存储中的一个已保存文件
type Attachment struct {
	name     string
	mimeType string
}

// NewAttachment 创建附件引用
func NewAttachment(name, mimeType string) Attachment {
	return Attachment{
		name:     name,
		mimeType: mimeType,
	}
}

// Name 返回附件在存储中的文件名
func (a Attachment) Name() string {
	return a.name
}

// MIMEType 返回附件的 MIME 类型
func (a Attachment) MIMEType() string {
	return a.mimeType
}

// IsZero reports whether the attachment reference is empty.
func (a Attachment) IsZero() bool {
	return a.name == ""
}
