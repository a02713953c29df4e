//go:build linux

package camera

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unsafe"

	"golang.org/x/sys/unix"
)

// V4L2の定数（linux/videodev2.h）
const (
	v4l2BufTypeVideoCapture = 1
	v4l2MemoryMmap          = 1
	v4l2FieldNone           = 1
)

type v4l2PixFormat struct {
	Width        uint32
	Height       uint32
	PixelFormat  uint32
	Field        uint32
	BytesPerLine uint32
	SizeImage    uint32
	Colorspace   uint32
	Priv         uint32
	Flags        uint32
	YcbcrEnc     uint32
	Quantization uint32
	XferFunc     uint32
}

type v4l2Format struct {
	Type uint32
	// カーネル側の共用体はポインタ境界に揃う
	union struct {
		_   [0]uintptr
		raw [200]byte
	}
}

func (f *v4l2Format) pix() *v4l2PixFormat {
	return (*v4l2PixFormat)(unsafe.Pointer(&f.union.raw[0]))
}

type v4l2RequestBuffers struct {
	Count        uint32
	Type         uint32
	Memory       uint32
	Capabilities uint32
	Flags        uint8
	Reserved     [3]uint8
}

type v4l2Timecode struct {
	Type     uint32
	Flags    uint32
	Frames   uint8
	Seconds  uint8
	Minutes  uint8
	Hours    uint8
	Userbits [4]uint8
}

type v4l2Buffer struct {
	Index     uint32
	Type      uint32
	BytesUsed uint32
	Flags     uint32
	Field     uint32
	Timestamp unix.Timeval
	Timecode  v4l2Timecode
	Sequence  uint32
	Memory    uint32
	M         uintptr // offset / userptr / planes / fd の共用体
	Length    uint32
	Reserved2 uint32
	RequestFD uint32
}

const (
	iocWrite = 1
	iocRead  = 2
)

func ioc(dir, nr, size uintptr) uintptr {
	return dir<<30 | size<<16 | uintptr('V')<<8 | nr
}

var (
	vidiocSFmt      = ioc(iocRead|iocWrite, 5, unsafe.Sizeof(v4l2Format{}))
	vidiocReqBufs   = ioc(iocRead|iocWrite, 8, unsafe.Sizeof(v4l2RequestBuffers{}))
	vidiocQueryBuf  = ioc(iocRead|iocWrite, 9, unsafe.Sizeof(v4l2Buffer{}))
	vidiocQBuf      = ioc(iocRead|iocWrite, 15, unsafe.Sizeof(v4l2Buffer{}))
	vidiocDQBuf     = ioc(iocRead|iocWrite, 17, unsafe.Sizeof(v4l2Buffer{}))
	vidiocStreamOn  = ioc(iocWrite, 18, unsafe.Sizeof(int32(0)))
	vidiocStreamOff = ioc(iocWrite, 19, unsafe.Sizeof(int32(0)))
)

func ioctl(fd int, req uintptr, arg unsafe.Pointer) error {
	for {
		_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), req, uintptr(arg))
		switch errno {
		case 0:
			return nil
		case unix.EINTR:
			continue
		default:
			return errno
		}
	}
}

// fourcc は "MJPG" のような4文字コードをV4L2の数値表現に変換する
func fourcc(code string) uint32 {
	b := []byte(code + "    ")
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}

// V4L2Opener はV4L2デバイスをmmapバッファ1つでオープンする
type V4L2Opener struct{}

// NewV4L2Opener は新しいV4L2Openerを作成する
func NewV4L2Opener() Opener {
	return &V4L2Opener{}
}

// Open はデバイスをオープンし、解像度を設定してストリーミングを開始する
func (o *V4L2Opener) Open(ctx context.Context, desc Descriptor) (Handle, error) {
	if err := ctx.Err(); err != nil {
		return nil, newDeviceError(desc.Device, "オープン", err)
	}

	fd, err := unix.Open(desc.Device, unix.O_RDWR|unix.O_NONBLOCK|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, newDeviceError(desc.Device, "オープン", err)
	}

	h := &v4l2Handle{desc: desc, fd: fd}
	if err := h.start(); err != nil {
		h.release()
		return nil, err
	}

	return h, nil
}

// v4l2Handle はストリーミング中のV4L2デバイス
type v4l2Handle struct {
	desc      Descriptor
	fd        int
	mem       []byte
	streaming bool
	closed    bool
	seq       uint64
}

// start はフォーマット設定・バッファ確保・キュー投入・ストリーミング開始を行う
func (h *v4l2Handle) start() error {
	var f v4l2Format
	f.Type = v4l2BufTypeVideoCapture
	pix := f.pix()
	pix.Width = uint32(h.desc.Width)
	pix.Height = uint32(h.desc.Height)
	pix.PixelFormat = fourcc(h.desc.Format())
	pix.Field = v4l2FieldNone
	if err := ioctl(h.fd, vidiocSFmt, unsafe.Pointer(&f)); err != nil {
		return newDeviceError(h.desc.Device, "フォーマット設定", err)
	}

	// ドライバーが解像度を調整した場合は拒否とみなす
	if pix.Width != uint32(h.desc.Width) || pix.Height != uint32(h.desc.Height) {
		return newDeviceError(h.desc.Device, "フォーマット設定",
			fmt.Errorf("解像度 %dx%d は使用できません (ドライバー提案: %dx%d)",
				h.desc.Width, h.desc.Height, pix.Width, pix.Height))
	}
	if pix.PixelFormat != fourcc(h.desc.Format()) {
		return newDeviceError(h.desc.Device, "フォーマット設定",
			fmt.Errorf("ピクセルフォーマット %s は使用できません", h.desc.Format()))
	}

	req := v4l2RequestBuffers{
		Count:  1,
		Type:   v4l2BufTypeVideoCapture,
		Memory: v4l2MemoryMmap,
	}
	if err := ioctl(h.fd, vidiocReqBufs, unsafe.Pointer(&req)); err != nil {
		return newDeviceError(h.desc.Device, "バッファ要求", err)
	}
	if req.Count < 1 {
		return newDeviceError(h.desc.Device, "バッファ要求", errors.New("バッファが割り当てられませんでした"))
	}

	buf := v4l2Buffer{
		Index:  0,
		Type:   v4l2BufTypeVideoCapture,
		Memory: v4l2MemoryMmap,
	}
	if err := ioctl(h.fd, vidiocQueryBuf, unsafe.Pointer(&buf)); err != nil {
		return newDeviceError(h.desc.Device, "バッファ照会", err)
	}

	// リトルエンディアンでは共用体の下位32bitが offset
	mem, err := unix.Mmap(h.fd, int64(uint32(buf.M)), int(buf.Length), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return newDeviceError(h.desc.Device, "mmap", err)
	}
	h.mem = mem

	if err := ioctl(h.fd, vidiocQBuf, unsafe.Pointer(&buf)); err != nil {
		return newDeviceError(h.desc.Device, "バッファのキュー", err)
	}

	typ := int32(v4l2BufTypeVideoCapture)
	if err := ioctl(h.fd, vidiocStreamOn, unsafe.Pointer(&typ)); err != nil {
		return newDeviceError(h.desc.Device, "ストリーミング開始", err)
	}
	h.streaming = true

	return nil
}

// pollMillis はpoll(2)に渡すミリ秒を返す。1ms未満は即時復帰にならないよう切り上げる
func pollMillis(timeout time.Duration) int {
	if timeout <= 0 {
		return 1
	}
	return int((timeout + time.Millisecond - 1) / time.Millisecond)
}

// WaitForFrame はpollでフレームの到着を待機する
func (h *v4l2Handle) WaitForFrame(timeout time.Duration) (bool, error) {
	if h.closed {
		return false, newDeviceError(h.desc.Device, "フレーム待機", unix.EBADF)
	}

	fds := []unix.PollFd{{Fd: int32(h.fd), Events: unix.POLLIN}}
	n, err := unix.Poll(fds, pollMillis(timeout))
	if errors.Is(err, unix.EINTR) {
		return false, nil
	}
	if err != nil {
		return false, newDeviceError(h.desc.Device, "フレーム待機", err)
	}
	if n == 0 {
		return false, nil
	}

	revents := fds[0].Revents
	if revents&unix.POLLIN == 0 && revents&(unix.POLLERR|unix.POLLHUP|unix.POLLNVAL) != 0 {
		return false, newDeviceError(h.desc.Device, "フレーム待機", fmt.Errorf("poll revents=%#x", revents))
	}

	return revents&unix.POLLIN != 0, nil
}

// ReadFrame はバッファを取り出してコピーし、直ちに再キューする
func (h *v4l2Handle) ReadFrame() (Frame, error) {
	if h.closed {
		return Frame{}, newDeviceError(h.desc.Device, "フレーム取得", unix.EBADF)
	}

	buf := v4l2Buffer{
		Type:   v4l2BufTypeVideoCapture,
		Memory: v4l2MemoryMmap,
	}
	if err := ioctl(h.fd, vidiocDQBuf, unsafe.Pointer(&buf)); err != nil {
		return Frame{}, newDeviceError(h.desc.Device, "フレーム取得", err)
	}

	n := int(buf.BytesUsed)
	if n > len(h.mem) {
		n = len(h.mem)
	}
	data := make([]byte, n)
	copy(data, h.mem[:n])

	// バッファは1つしかないため、再キューしないとキャプチャが止まる
	if err := ioctl(h.fd, vidiocQBuf, unsafe.Pointer(&buf)); err != nil {
		return Frame{}, newDeviceError(h.desc.Device, "バッファの再キュー", err)
	}

	h.seq++
	return Frame{
		Sequence:  h.seq,
		Data:      data,
		BytesUsed: int(buf.BytesUsed),
		Timestamp: time.Now(),
	}, nil
}

// Close はストリーミングを停止してデバイスを解放する
func (h *v4l2Handle) Close() error {
	if h.closed {
		return nil
	}
	return h.release()
}

// release は取得済みのリソースを逆順に解放する
func (h *v4l2Handle) release() error {
	h.closed = true

	var errs []error
	if h.streaming {
		typ := int32(v4l2BufTypeVideoCapture)
		if err := ioctl(h.fd, vidiocStreamOff, unsafe.Pointer(&typ)); err != nil {
			errs = append(errs, fmt.Errorf("ストリーミング停止: %w", err))
		}
		h.streaming = false
	}
	if h.mem != nil {
		if err := unix.Munmap(h.mem); err != nil {
			errs = append(errs, fmt.Errorf("munmap: %w", err))
		}
		h.mem = nil
	}
	if err := unix.Close(h.fd); err != nil {
		errs = append(errs, fmt.Errorf("close: %w", err))
	}

	if len(errs) > 0 {
		return newDeviceError(h.desc.Device, "クローズ", errors.Join(errs...))
	}
	return nil
}
